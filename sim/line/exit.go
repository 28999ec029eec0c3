package line

// Exit absorbs finished entities and records throughput.
type Exit struct {
	stationBase
	exits    int
	lifespan float64

	// Exits and Lifespans hold one sample per replication.
	Exits     []int
	Lifespans []float64
}

// NewExit creates an exit.
func NewExit(id, name string) *Exit {
	return &Exit{stationBase: stationBase{id: id, name: name}}
}

// Initialize implements Station.
func (x *Exit) Initialize(l *Line) {
	x.reset(l)
	x.exits = 0
	x.lifespan = 0
}

// Receive implements Receiver.
func (x *Exit) Receive(e *Entity, now float64) {
	e.Enter(x.id, now)
	x.exits++
	x.lifespan += now - e.CreationTime
}

// NumExits returns the entities absorbed in the current replication.
func (x *Exit) NumExits() int {
	return x.exits
}

// PostProcessing implements Station.
func (x *Exit) PostProcessing(float64) {
	x.Exits = append(x.Exits, x.exits)
	avg := 0.0
	if x.exits > 0 {
		avg = x.lifespan / float64(x.exits)
	}
	x.Lifespans = append(x.Lifespans, avg)
}
