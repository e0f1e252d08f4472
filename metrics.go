package renderpool

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPolicy defines hooks used by the pool to report admission,
// dispatch, and worker lifecycle activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncEnqueued increments the admitted jobs counter.
	IncEnqueued()

	// IncDispatched increments the dispatched jobs counter.
	IncDispatched()

	// IncCompleted increments the successfully finished jobs counter.
	IncCompleted()

	// IncFailed increments the failed jobs counter.
	IncFailed()

	// IncTimedOut increments the timed-out jobs counter.
	IncTimedOut()

	// IncLaunched increments the launched workers counter.
	IncLaunched()

	// IncCrashed increments the crashed workers counter.
	IncCrashed()

	// SetQueued records the current queue length.
	SetQueued(n int)
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	enqueued   atomic.Uint64
	dispatched atomic.Uint64
	completed  atomic.Uint64
	failed     atomic.Uint64
	timedOut   atomic.Uint64
	launched   atomic.Uint64
	crashed    atomic.Uint64
	queued     atomic.Int64
}

func (m *AtomicMetrics) IncEnqueued()   { m.enqueued.Add(1) }
func (m *AtomicMetrics) IncDispatched() { m.dispatched.Add(1) }
func (m *AtomicMetrics) IncCompleted()  { m.completed.Add(1) }
func (m *AtomicMetrics) IncFailed()     { m.failed.Add(1) }
func (m *AtomicMetrics) IncTimedOut()   { m.timedOut.Add(1) }
func (m *AtomicMetrics) IncLaunched()   { m.launched.Add(1) }
func (m *AtomicMetrics) IncCrashed()    { m.crashed.Add(1) }
func (m *AtomicMetrics) SetQueued(n int) {
	m.queued.Store(int64(n))
}

// Cold-path accessors.

func (m *AtomicMetrics) Enqueued() uint64   { return m.enqueued.Load() }
func (m *AtomicMetrics) Dispatched() uint64 { return m.dispatched.Load() }
func (m *AtomicMetrics) Completed() uint64  { return m.completed.Load() }
func (m *AtomicMetrics) Failed() uint64     { return m.failed.Load() }
func (m *AtomicMetrics) TimedOut() uint64   { return m.timedOut.Load() }
func (m *AtomicMetrics) Launched() uint64   { return m.launched.Load() }
func (m *AtomicMetrics) Crashed() uint64    { return m.crashed.Load() }
func (m *AtomicMetrics) Queued() int64      { return m.queued.Load() }

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (m *NoopMetrics) IncEnqueued()   {}
func (m *NoopMetrics) IncDispatched() {}
func (m *NoopMetrics) IncCompleted()  {}
func (m *NoopMetrics) IncFailed()     {}
func (m *NoopMetrics) IncTimedOut()   {}
func (m *NoopMetrics) IncLaunched()   {}
func (m *NoopMetrics) IncCrashed()    {}
func (m *NoopMetrics) SetQueued(int)  {}

//------------- PromMetrics ----------------------------------

// PromMetrics exports pool activity as Prometheus collectors registered
// on the given registerer.
type PromMetrics struct {
	enqueued   prometheus.Counter
	dispatched prometheus.Counter
	completed  prometheus.Counter
	failed     prometheus.Counter
	timedOut   prometheus.Counter
	launched   prometheus.Counter
	crashed    prometheus.Counter
	queued     prometheus.Gauge
}

func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "renderpool",
			Name:      name,
			Help:      help,
		})
	}
	m := &PromMetrics{
		enqueued:   counter("jobs_enqueued_total", "Jobs admitted into the queue."),
		dispatched: counter("jobs_dispatched_total", "Jobs assigned to a worker."),
		completed:  counter("jobs_completed_total", "Jobs finished successfully."),
		failed:     counter("jobs_failed_total", "Jobs that returned an error."),
		timedOut:   counter("jobs_timed_out_total", "Jobs rejected by the pool timeout."),
		launched:   counter("workers_launched_total", "Workers launched, warm-up included."),
		crashed:    counter("workers_crashed_total", "Workers removed after an unexpected disconnect."),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "renderpool",
			Name:      "jobs_queued",
			Help:      "Jobs currently waiting in the queue.",
		}),
	}
	reg.MustRegister(
		m.enqueued, m.dispatched, m.completed, m.failed,
		m.timedOut, m.launched, m.crashed, m.queued,
	)
	return m
}

func (m *PromMetrics) IncEnqueued()   { m.enqueued.Inc() }
func (m *PromMetrics) IncDispatched() { m.dispatched.Inc() }
func (m *PromMetrics) IncCompleted()  { m.completed.Inc() }
func (m *PromMetrics) IncFailed()     { m.failed.Inc() }
func (m *PromMetrics) IncTimedOut()   { m.timedOut.Inc() }
func (m *PromMetrics) IncLaunched()   { m.launched.Inc() }
func (m *PromMetrics) IncCrashed()    { m.crashed.Inc() }
func (m *PromMetrics) SetQueued(n int) {
	m.queued.Set(float64(n))
}
