// Package renderpool schedules long-running, I/O-bound render jobs onto
// a small pool of expensive worker processes, typically headless browser
// sessions.
//
// # Design goals
//
// The package is designed around the following principles:
//
//   - Workers are expensive: launch lazily, reuse aggressively
//   - Workers come in capability classes and must be matched to jobs
//   - Failure is normal: workers crash, launches fail, jobs hang
//   - Callers always get a settled result, never a dangling future
//
// Rather than optimizing for throughput of many short jobs, renderpool
// optimizes for correct capacity accounting and forward progress with a
// handful of heavyweight jobs in flight.
//
// # Architecture overview
//
// The pool is composed of four loosely coupled layers:
//
//  1. Admission (Pool.Enqueue)
//     Validates the job against the configured capability classes and
//     inserts it into a priority queue. Ties between equal priorities
//     resolve in enqueue order.
//
//  2. Scheduling (scheduler loop)
//     A single goroutine woken after every state change that could
//     create a new matching opportunity. Each pass performs at most one
//     dispatch, then relies on the resulting completion event to wake
//     it again.
//
//  3. Worker lifecycle (roster)
//     Workers are launched on demand up to a per-class cap, watched for
//     unexpected disconnects, and replenished automatically after a
//     crash. In-flight launches count toward the cap so concurrent
//     passes can never overshoot it.
//
//  4. Execution (job runner)
//     A dispatched job races against the pool timeout. Exactly one of
//     success, failure, or timeout settles the caller's future; every
//     path frees the worker and wakes the scheduler.
//
// # Capability classes
//
// Each worker belongs to exactly one capability class, fixed at launch
// time. A class typically maps to a browser launched with a particular
// flag or extension set (for example with content blocking enabled).
// Jobs declare the class they require and are only ever dispatched to a
// matching worker.
//
// # Timeouts
//
// The pool timeout is advisory. When it fires, the caller's future is
// rejected and the job's context is cancelled, but the underlying
// execution is not forcibly terminated. A job that keeps running holds
// its worker's page slot until it actually returns; its late result is
// discarded.
//
// # Shutdown
//
// Shutdown rejects every still-queued job, then closes all live workers
// concurrently. Individual close failures are logged, not fatal. The
// rendering work itself (navigation, scripted actions, capture) is out
// of scope: a job is an opaque function that receives a worker handle.
package renderpool
