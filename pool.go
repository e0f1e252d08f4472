package renderpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Pool is the externally visible scheduler surface: admission,
// introspection, and shutdown. All internal state is owned by the pool
// and mutated only under its lock; the scheduler loop is the single
// dispatch authority.
type Pool struct {
	opts     Options
	launcher Launcher
	metrics  MetricsPolicy

	mu           sync.Mutex
	queue        *jobQueue
	roster       *roster
	nextJobID    int64
	nextWorkerID int64
	shuttingDown bool

	kickCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc

	relaunch *rate.Limiter
}

// Stats is a point-in-time snapshot of pool state.
type Stats struct {
	TotalWorkers int
	PerClass     map[Capability]int
	Busy         int
	Idle         int
	Launching    int
	QueueLength  int
	OldestQueued time.Duration
	ShuttingDown bool

	// Config is a deep copy; mutating it does not affect the pool.
	Config Options
}

// New builds a pool, performs the configured warm-up launches, and
// starts the scheduler loop.
//
// If any warm-up launch fails, every worker that did come up is torn
// down and New returns the aggregate of all launch errors.
func New(launcher Launcher, opts Options) (*Pool, error) {
	if launcher == nil {
		return nil, fmt.Errorf("%w: nil launcher", ErrBadConfig)
	}
	opts.FillDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		opts:     opts,
		launcher: launcher,
		metrics:  opts.Metrics,
		queue:    newJobQueue(),
		roster:   newRoster(),
		kickCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
		relaunch: rate.NewLimiter(rate.Every(opts.RelaunchEvery), opts.RelaunchBurst),
	}

	if err := p.warmUp(); err != nil {
		p.stopOnce.Do(func() {
			close(p.stopCh)
			p.cancel()
		})
		return nil, err
	}

	go p.schedulerLoop()
	p.kick()
	return p, nil
}

func (p *Pool) warmUp() error {
	var g errgroup.Group
	var errMu sync.Mutex
	var errs error

	p.mu.Lock()
	for class, cc := range p.opts.Classes {
		for i := 0; i < cc.Warm; i++ {
			p.roster.launching[class]++
			class := class
			g.Go(func() error {
				if _, err := p.launch(class); err != nil {
					errMu.Lock()
					errs = multierr.Append(errs, err)
					errMu.Unlock()
				}
				return nil
			})
		}
	}
	p.mu.Unlock()
	_ = g.Wait()

	if errs == nil {
		return nil
	}

	// Partial warm-up is worse than none: tear down the survivors.
	p.mu.Lock()
	workers := p.roster.all()
	p.roster = newRoster()
	p.mu.Unlock()
	for _, w := range workers {
		if cerr := w.session.Close(); cerr != nil {
			lg.FromContext(p.baseCtx).Warn("teardown close failed",
				lg.Any("worker", w.id),
				lg.Any("error", cerr),
			)
		}
	}
	return errs
}

// Enqueue admits a validated job at the given priority (higher is
// served first) and returns its future.
//
// It rejects synchronously, without touching the queue, when the pool
// is shutting down or the job's class has no configured capacity.
func (p *Pool) Enqueue(job *Job, priority int) (*Future, error) {
	if job == nil || job.run == nil {
		return nil, ErrNilFunc
	}

	p.mu.Lock()
	if p.shuttingDown {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	cc, ok := p.opts.Classes[job.class]
	if !ok || cc.Cap <= 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrClassUnavailable, job.class)
	}
	p.nextJobID++
	qj := &queuedJob{
		id:       p.nextJobID,
		job:      job,
		priority: priority,
		fut:      newFuture(),
		queuedAt: time.Now(),
	}
	p.queue.push(qj)
	qlen := p.queue.len()
	p.mu.Unlock()

	p.metrics.IncEnqueued()
	p.metrics.SetQueued(qlen)
	lg.FromContext(job.ctx).Info("job enqueued",
		lg.Any("job", qj.id),
		lg.String("class", string(job.class)),
		lg.Int("priority", priority),
		lg.Int("queued", qlen),
	)
	p.kick()
	return qj.fut, nil
}

// Stats returns a consistent snapshot of counts and config.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	busy, idle := p.roster.busyIdle()
	launching := 0
	for _, n := range p.roster.launching {
		launching += n
	}
	return Stats{
		TotalWorkers: p.roster.total(),
		PerClass:     p.roster.perClass(),
		Busy:         busy,
		Idle:         idle,
		Launching:    launching,
		QueueLength:  p.queue.len(),
		OldestQueued: p.queue.maxAge(time.Now()),
		ShuttingDown: p.shuttingDown,
		Config:       p.opts.clone(),
	}
}

// Kill forcibly removes a worker, closing its session. With replenish
// set, a same-class replacement is launched subject to the class cap.
// Intended for externally detected misbehaviour (a caller-side health
// check); crashes are handled internally by the disconnect watcher.
func (p *Pool) Kill(id int64, replenish bool) error {
	p.mu.Lock()
	w := p.roster.remove(id)
	if w == nil {
		p.mu.Unlock()
		return ErrWorkerNotFound
	}
	w.connected = false
	rep := replenish && !p.shuttingDown && p.reserveLaunch(w.class)
	p.mu.Unlock()

	if err := w.session.Close(); err != nil {
		lg.FromContext(p.baseCtx).Warn("worker close failed",
			lg.Any("worker", w.id),
			lg.Any("error", err),
		)
	}
	if rep {
		go p.replenish(w.class)
	}
	p.kick()
	return nil
}

// Shutdown gates admission, rejects every still-queued job with
// ErrPoolClosed, then closes all live workers concurrently. Individual
// close failures are logged, not fatal. Shutdown returns once every
// close attempt has settled, or ctx.Err() if ctx ends first.
//
// In-flight jobs are not waited for: their futures settle through the
// runner as usual (typically with an error once their worker is gone).
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.shuttingDown = true
	drained := p.queue.drain()
	workers := p.roster.all()
	p.roster = newRoster()
	p.mu.Unlock()

	for _, qj := range drained {
		qj.fut.settle(nil, ErrPoolClosed)
	}
	p.metrics.SetQueued(0)
	if len(drained) > 0 {
		lg.FromContext(p.baseCtx).Info("queue drained on shutdown", lg.Int("rejected", len(drained)))
	}

	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.cancel()
	})
	<-p.doneCh // scheduler goroutine has exited; no dispatch can follow

	var g errgroup.Group
	for _, w := range workers {
		w := w
		g.Go(func() error {
			if err := w.session.Close(); err != nil {
				lg.FromContext(p.baseCtx).Warn("worker close failed",
					lg.Any("worker", w.id),
					lg.Any("error", err),
				)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = g.Wait()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is the blocking convenience form of Shutdown.
func (p *Pool) Stop() { _ = p.Shutdown(context.Background()) }

// reserveLaunch claims a launch slot for class if it is below cap.
// Caller holds the pool lock.
func (p *Pool) reserveLaunch(class Capability) bool {
	cc, ok := p.opts.Classes[class]
	if !ok {
		return false
	}
	if p.roster.occupied(class) >= cc.Cap {
		return false
	}
	p.roster.launching[class]++
	return true
}

// launch starts one worker for an already-reserved slot and registers
// it with the roster. The slot is released whichever way the launch
// settles.
func (p *Pool) launch(class Capability) (*Worker, error) {
	cc := p.opts.Classes[class]
	sess, err := p.launcher.Launch(p.baseCtx, class, cc.Launch)

	p.mu.Lock()
	// Shutdown or warm-up teardown may have swapped the roster while
	// the launch was in flight; the slot was reserved on the old one,
	// so never drive the fresh counter negative.
	if p.roster.launching[class] > 0 {
		p.roster.launching[class]--
	}
	if err != nil {
		p.mu.Unlock()
		return nil, &LaunchError{Class: class, Err: err}
	}
	if p.shuttingDown {
		p.mu.Unlock()
		_ = sess.Close()
		return nil, ErrPoolClosed
	}
	p.nextWorkerID++
	w := &Worker{
		id:        p.nextWorkerID,
		class:     class,
		session:   sess,
		connected: true,
	}
	p.roster.add(w)
	p.mu.Unlock()

	p.metrics.IncLaunched()
	lg.FromContext(p.baseCtx).Info("worker launched",
		lg.Any("worker", w.id),
		lg.String("class", string(class)),
	)
	go p.watch(w)
	return w, nil
}

// watch waits for the worker's session to drop.
func (p *Pool) watch(w *Worker) {
	select {
	case <-w.session.Disconnected():
		p.onDisconnect(w)
	case <-p.stopCh:
	}
}

// onDisconnect handles a crash: remove from the roster, close the
// handle defensively, and replenish the class if still below cap.
func (p *Pool) onDisconnect(w *Worker) {
	p.mu.Lock()
	if p.shuttingDown || p.roster.remove(w.id) == nil {
		p.mu.Unlock()
		return
	}
	w.connected = false
	rep := p.reserveLaunch(w.class)
	p.mu.Unlock()

	p.metrics.IncCrashed()
	lg.FromContext(p.baseCtx).Warn("worker disconnected",
		lg.Any("worker", w.id),
		lg.String("class", string(w.class)),
	)
	_ = w.session.Close()
	if rep {
		go p.replenish(w.class)
	}
	p.kick()
}

// replenish launches a crash replacement for an already-reserved slot,
// throttled so a flapping class cannot relaunch in a tight loop.
func (p *Pool) replenish(class Capability) {
	if err := p.relaunch.Wait(p.baseCtx); err != nil {
		p.mu.Lock()
		if p.roster.launching[class] > 0 {
			p.roster.launching[class]--
		}
		p.mu.Unlock()
		return
	}
	if _, err := p.launch(class); err != nil {
		lg.FromContext(p.baseCtx).Warn("replenish failed",
			lg.String("class", string(class)),
			lg.Any("error", err),
		)
	}
	p.kick()
}
