package renderpool

import (
	"context"
	"errors"
	"sync"
)

// Result is the opaque output of a render job (a bitmap, a video
// buffer, structured data). The pool never inspects it.
type Result any

// RunFunc is the function executed for a dispatched job. It receives
// the worker the scheduler assigned and must honor ctx for cooperative
// cancellation: the pool cancels ctx when the job times out or the
// caller's context ends, but never interrupts the function forcibly.
//
// Cleanup of whatever per-job session state the function opened on the
// worker is the function's own responsibility.
type RunFunc func(ctx context.Context, w *Worker) (Result, error)

// JobSpec describes a job before admission. NewJob validates it.
type JobSpec struct {
	// Run performs the actual work. Required.
	Run RunFunc

	// Class is the capability class the job requires.
	// Empty means DefaultClass.
	Class Capability

	// Ctx is attached to the job for logging and cooperative
	// cancellation. Defaults to context.Background().
	Ctx context.Context

	// DismissBanners requests cookie-banner dismissal before capture.
	// When set, BannerSelectors must be non-empty. The pool only
	// validates the pair; acting on it is the run function's job.
	DismissBanners  bool
	BannerSelectors []string
}

// Job is a validated, immutable job descriptor ready for Enqueue.
type Job struct {
	run             RunFunc
	class           Capability
	ctx             context.Context
	dismissBanners  bool
	bannerSelectors []string
}

// NewJob validates spec and returns a descriptor. It is pure and
// synchronous; all spec-level invariants fail fast here so Enqueue
// never sees a malformed job.
func NewJob(spec JobSpec) (*Job, error) {
	if spec.Run == nil {
		return nil, ErrNilFunc
	}
	if spec.DismissBanners && len(spec.BannerSelectors) == 0 {
		return nil, errors.New("renderpool: banner dismissal requested with empty selector list")
	}
	if spec.Class == "" {
		spec.Class = DefaultClass
	}
	if spec.Ctx == nil {
		spec.Ctx = context.Background()
	}
	return &Job{
		run:             spec.Run,
		class:           spec.Class,
		ctx:             spec.Ctx,
		dismissBanners:  spec.DismissBanners,
		bannerSelectors: spec.BannerSelectors,
	}, nil
}

// Class returns the capability class the job requires.
func (j *Job) Class() Capability { return j.class }

// Future is the caller-visible completion handle for an enqueued job.
//
// A future settles exactly once. A late job result arriving after a
// timeout rejection is discarded by the once-latch.
type Future struct {
	done chan struct{}
	once sync.Once
	res  Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle records the outcome and reports whether this call won the
// race. Losing outcomes are dropped.
func (f *Future) settle(res Result, err error) bool {
	won := false
	f.once.Do(func() {
		f.res = res
		f.err = err
		close(f.done)
		won = true
	})
	return won
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx ends.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
