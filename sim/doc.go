// Package sim provides the discrete-event kernel the line simulator runs on.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - engine.go: the virtual clock and the three wake-up queues (ready, timed, deferred)
//   - process.go: Process and the Behavior state-machine interface
//   - event.go: one-shot events that resume every waiter in the tick they fire
//   - resource.go: an exclusive unit with a FIFO wait queue and busy-time accounting
//
// # Architecture
//
// Processes are explicit state machines. Each call to Behavior.Resume must
// suspend the process exactly once (Wait, Hold or Defer) or Exit it, so the
// whole simulation runs on one goroutine and is reproducible for a given seed.
//
// Domain code lives in sub-packages:
//   - sim/line/: stations, operators, brokers, the router and scheduling rules
//   - sim/model/: YAML line models, validation and construction
//   - sim/report/: confidence intervals over replications
//   - sim/trace/: router decision records and their SQLite export
//
// Engines, events and resources accept hooks (hook.go) so tests and tracing
// can observe acquisitions, releases and resumptions without changing the
// processes being observed.
package sim
