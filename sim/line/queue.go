package line

// puller is a station that pulls entities from its predecessors when notified.
type puller interface {
	notify(now float64)
}

// Queue is an unbounded FIFO buffer between stations.
type Queue struct {
	stationBase
	entered   int
	maxLength int

	// MaxLength holds one sample per replication.
	MaxLength []int
}

// NewQueue creates a queue.
func NewQueue(id, name string) *Queue {
	return &Queue{stationBase: stationBase{id: id, name: name}}
}

// Initialize implements Station.
func (q *Queue) Initialize(l *Line) {
	q.reset(l)
	q.entered = 0
	q.maxLength = 0
}

// Receive appends e and notifies successors waiting for work.
func (q *Queue) Receive(e *Entity, now float64) {
	e.Enter(q.id, now)
	q.queue = append(q.queue, e)
	q.entered++
	if len(q.queue) > q.maxLength {
		q.maxLength = len(q.queue)
	}
	for _, s := range q.successors {
		if p, ok := s.(puller); ok {
			p.notify(now)
		}
	}
}

// HasEntity implements Giver.
func (q *Queue) HasEntity() bool {
	return len(q.queue) > 0
}

// Take removes and returns the head entity, or nil when empty.
func (q *Queue) Take(float64) *Entity {
	if len(q.queue) == 0 {
		return nil
	}
	e := q.queue[0]
	q.queue = q.queue[1:]
	e.leave(q.id)
	return e
}

// PostProcessing implements Station.
func (q *Queue) PostProcessing(float64) {
	q.MaxLength = append(q.MaxLength, q.maxLength)
}
