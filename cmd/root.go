package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/linesim/linesim/sim/line"
	"github.com/linesim/linesim/sim/model"
	"github.com/linesim/linesim/sim/report"
	"github.com/linesim/linesim/sim/trace"
)

var (
	modelPath       string  // Path to the YAML line model
	seed            int64   // Base seed; replication i uses seed+i+1
	horizon         float64 // Simulated time per replication
	replications    int     // Number of independent replications
	logLevel        string  // Log verbosity level
	traceLevel      string  // Decision trace level: none or decisions
	traceCandidates int     // Ranked candidates kept per traced grant
	traceDBPath     string  // SQLite file for the decision trace
	resultsPath     string  // JSON file for the results
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "linesim",
	Short: "Discrete-event simulator for manufacturing lines with shared operators",
}

// runOptions carries the settings of one CLI run after flags were applied.
type runOptions struct {
	TraceCandidates int
	TraceDBPath     string
	ResultsPath     string
}

// runCmd executes replications of a line model
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation of a line model",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		m, err := model.Load(modelPath)
		if err != nil {
			logrus.Fatalf("unable to load line model; %v", err)
		}
		if err := applyOverrides(cmd, m); err != nil {
			logrus.Fatalf("invalid flags; %v", err)
		}

		logrus.Infof("Starting simulation of %q with horizon=%v, replications=%d, seed=%d",
			m.General.Name, m.General.MaxSimTime, m.General.NumberOfReplications, m.General.Seed)

		opts := runOptions{
			TraceCandidates: traceCandidates,
			TraceDBPath:     traceDBPath,
			ResultsPath:     resultsPath,
		}
		if err := runModel(m, opts, os.Stdout); err != nil {
			logrus.Fatalf("simulation failed; %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// validateCmd loads and builds a line model without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a line model for errors",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		m, err := model.Load(modelPath)
		if err != nil {
			logrus.Fatalf("unable to load line model; %v", err)
		}
		l, err := model.Build(m)
		if err != nil {
			logrus.Fatalf("unable to build line model; %v", err)
		}
		describe(os.Stdout, m, l)
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// applyOverrides copies explicitly set flags over the model's general section.
func applyOverrides(cmd *cobra.Command, m *model.Model) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		m.General.Seed = seed
	}
	if flags.Changed("horizon") {
		if horizon <= 0 {
			return fmt.Errorf("horizon must be positive, got %v", horizon)
		}
		m.General.MaxSimTime = horizon
	}
	if flags.Changed("replications") {
		if replications < 1 {
			return fmt.Errorf("replications must be at least 1, got %d", replications)
		}
		m.General.NumberOfReplications = replications
	}
	if flags.Changed("trace") {
		if !trace.IsValidTraceLevel(traceLevel) {
			return fmt.Errorf("unknown trace level %q", traceLevel)
		}
		m.General.Trace = traceLevel
	}
	return nil
}

// runModel builds m, runs every replication and reports to w.
func runModel(m *model.Model, opts runOptions, w io.Writer) error {
	l, err := model.Build(m)
	if err != nil {
		return err
	}
	if trace.TraceLevel(m.General.Trace) == trace.TraceLevelDecisions {
		l.Trace = trace.NewSimulationTrace(trace.TraceConfig{
			Level:         trace.TraceLevelDecisions,
			MaxCandidates: opts.TraceCandidates,
		})
	}

	l.RunReplications(m.General.NumberOfReplications, m.General.MaxSimTime, m.General.Seed)

	results := report.Build(l, m.General.MaxSimTime, m.General.ConfidenceLevel)
	results.Model = m.General.Name
	results.Print(w)

	if opts.ResultsPath != "" {
		if err := results.SaveJSON(opts.ResultsPath); err != nil {
			return err
		}
		logrus.Infof("Results written to %s", opts.ResultsPath)
	}
	if opts.TraceDBPath != "" {
		if !l.Trace.Enabled() {
			logrus.Warnf("--trace-db set but trace level is %q; no trace written", m.General.Trace)
			return nil
		}
		if err := writeTrace(l.Trace, opts.TraceDBPath); err != nil {
			return err
		}
	}
	return nil
}

func writeTrace(st *trace.SimulationTrace, path string) error {
	rec, err := trace.NewSQLiteRecorder(path)
	if err != nil {
		return err
	}
	if err := rec.Write(st); err != nil {
		_ = rec.Close()
		return err
	}
	logrus.Infof("Decision trace (%d rounds, %d grants) written to %s",
		len(st.Rounds), len(st.Grants), rec.Filename())
	return rec.Close()
}

// describe prints the station and operator inventory of a built line.
func describe(w io.Writer, m *model.Model, l *line.Line) {
	fmt.Fprintf(w, "Model %q is valid\n", m.General.Name)
	fmt.Fprintf(w, "  stations : %d\n", len(l.Stations()))
	for _, s := range l.Stations() {
		fmt.Fprintf(w, "    %-8s %T\n", s.ID(), s)
	}
	fmt.Fprintf(w, "  operators: %d\n", len(l.Operators()))
	for _, op := range l.Operators() {
		fmt.Fprintf(w, "    %-8s rule=%s preemptive=%v\n", op.ID, op.Policy.Name, l.Arbiter.IsPreemptive(op))
	}
	fmt.Fprintf(w, "  brokers  : %d\n", len(l.Brokers()))
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&modelPath, "model", "", "Path to the YAML line model")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		_ = c.MarkFlagRequired("model")
	}

	runCmd.Flags().Int64Var(&seed, "seed", 0, "Base seed; overrides general.seed")
	runCmd.Flags().Float64Var(&horizon, "horizon", 0, "Simulated time per replication; overrides general.maxSimTime")
	runCmd.Flags().IntVar(&replications, "replications", 0, "Number of replications; overrides general.numberOfReplications")
	runCmd.Flags().StringVar(&traceLevel, "trace", "", "Decision trace level (none, decisions); overrides general.trace")
	runCmd.Flags().IntVar(&traceCandidates, "trace-candidates", 5, "Ranked candidates kept per traced grant")
	runCmd.Flags().StringVar(&traceDBPath, "trace-db", "", "Write the decision trace to this SQLite file")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "Write results as JSON to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
