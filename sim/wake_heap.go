package sim

import "container/heap"

// wakeup is a pending resumption of a process.
// Timed wake-ups live in the wakeHeap; zero-delay ones in the engine's FIFOs.
type wakeup struct {
	time  float64
	seq   uint64
	proc  *Process
	event *Event // nil for Hold/Defer/start wake-ups
}

// wakeHeap implements a priority queue with deterministic ordering.
// Order by: time → sequence number (scheduling order).
type wakeHeap struct {
	items []wakeup
}

func newWakeHeap() *wakeHeap {
	h := &wakeHeap{items: make([]wakeup, 0)}
	heap.Init(h)
	return h
}

// Len implements heap.Interface
func (h *wakeHeap) Len() int {
	return len(h.items)
}

// Less implements heap.Interface with deterministic ordering
func (h *wakeHeap) Less(i, j int) bool {
	wi, wj := h.items[i], h.items[j]
	if wi.time != wj.time {
		return wi.time < wj.time
	}
	return wi.seq < wj.seq
}

// Swap implements heap.Interface
func (h *wakeHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

// Push implements heap.Interface
func (h *wakeHeap) Push(x any) {
	h.items = append(h.items, x.(wakeup))
}

// Pop implements heap.Interface
func (h *wakeHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[0 : n-1]
	return item
}

func (h *wakeHeap) schedule(w wakeup) {
	heap.Push(h, w)
}

func (h *wakeHeap) popNext() wakeup {
	return heap.Pop(h).(wakeup)
}

// peek returns the earliest wake-up. Callers check Len first.
func (h *wakeHeap) peek() wakeup {
	return h.items[0]
}
