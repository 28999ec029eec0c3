package trace

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	createRoundsSQL = `CREATE TABLE IF NOT EXISTS rounds (
	replication INTEGER,
	round INTEGER,
	clock REAL,
	waiting_stations INTEGER,
	idle_operators INTEGER,
	grants INTEGER
);`
	createGrantsSQL = `CREATE TABLE IF NOT EXISTS grants (
	replication INTEGER,
	round INTEGER,
	clock REAL,
	operator TEXT,
	station TEXT,
	entity TEXT,
	rule TEXT,
	degraded INTEGER,
	conflict INTEGER
);`
	insertRoundSQL = `INSERT INTO rounds VALUES (?, ?, ?, ?, ?, ?)`
	insertGrantSQL = `INSERT INTO grants VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// SQLiteRecorder persists decision traces into a SQLite database file.
type SQLiteRecorder struct {
	db       *sql.DB
	filename string
}

// NewSQLiteRecorder creates the database file at path. An empty path picks a
// unique name in the working directory. An existing file is an error.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	if path == "" {
		path = "linesim_trace_" + xid.New().String() + ".sqlite3"
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("trace database %s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database: %w", err)
	}
	for _, stmt := range []string{createRoundsSQL, createGrantsSQL} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating trace tables: %w", err)
		}
	}
	logrus.Infof("Database created for trace recording: %s", path)
	return &SQLiteRecorder{db: db, filename: path}, nil
}

// Filename returns the database file path.
func (r *SQLiteRecorder) Filename() string {
	return r.filename
}

// DB exposes the underlying connection for queries.
func (r *SQLiteRecorder) DB() *sql.DB {
	return r.db
}

// Write inserts every round and grant of st in a single transaction.
func (r *SQLiteRecorder) Write(st *SimulationTrace) (err error) {
	if st == nil {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	roundStmt, err := tx.Prepare(insertRoundSQL)
	if err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	defer roundStmt.Close()
	for _, rr := range st.Rounds {
		if _, err = roundStmt.Exec(rr.Replication, rr.Round, rr.Clock,
			len(rr.WaitingStations), len(rr.IdleOperators), rr.Grants); err != nil {
			return fmt.Errorf("writing round %d: %w", rr.Round, err)
		}
	}

	grantStmt, err := tx.Prepare(insertGrantSQL)
	if err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	defer grantStmt.Close()
	for _, g := range st.Grants {
		if _, err = grantStmt.Exec(g.Replication, g.Round, g.Clock, g.Operator,
			g.Station, g.Entity, g.Rule, g.Degraded, g.Conflict); err != nil {
			return fmt.Errorf("writing grant in round %d: %w", g.Round, err)
		}
	}
	return nil
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
