package renderpool

import (
	"context"
	"errors"
	"fmt"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
)

type outcome struct {
	res Result
	err error
}

// runJob executes one dispatched job on its assigned worker, racing the
// run function against the pool timeout.
//
// Exactly one of success, failure, or timeout settles the future. On
// every settlement path the worker's busy flag is released and the
// scheduler is re-kicked — that is the invariant that guarantees
// forward progress. The page slot is held until the run function
// actually returns, which may be after a timeout settlement.
func (p *Pool) runJob(qj *queuedJob, w *Worker) {
	ctx, cancel := context.WithCancel(qj.job.ctx)
	defer cancel()

	start := time.Now()
	resCh := make(chan outcome, 1)
	go func() {
		res, err := qj.job.run(ctx, w)
		resCh <- outcome{res: res, err: err}
		p.pageDone(w)
	}()

	timer := time.NewTimer(p.opts.JobTimeout)
	defer timer.Stop()

	var out outcome
	select {
	case out = <-resCh:
	case <-timer.C:
		// Cooperative only: cancel the job ctx and walk away. The run
		// function keeps its page slot until it returns; its late
		// result is discarded by the future's once-latch.
		cancel()
		out = outcome{err: fmt.Errorf("%w after %s", ErrJobTimeout, p.opts.JobTimeout)}
	}

	if qj.fut.settle(out.res, out.err) {
		logger := lg.FromContext(qj.job.ctx)
		switch {
		case errors.Is(out.err, ErrJobTimeout):
			p.metrics.IncTimedOut()
			logger.Warn("job timed out",
				lg.Any("job", qj.id),
				lg.Any("worker", w.id),
				lg.String("timeout", p.opts.JobTimeout.String()),
			)
		case out.err != nil:
			p.metrics.IncFailed()
			logger.Warn("job failed",
				lg.Any("job", qj.id),
				lg.Any("worker", w.id),
				lg.Any("error", out.err),
				lg.String("took", time.Since(start).String()),
			)
		default:
			p.metrics.IncCompleted()
			logger.Info("job finished",
				lg.Any("job", qj.id),
				lg.Any("worker", w.id),
				lg.String("took", time.Since(start).String()),
			)
		}
	}

	p.mu.Lock()
	w.busy = false
	p.mu.Unlock()
	p.kick()
}

// pageDone releases the worker's page slot once the run function has
// truly returned, late or not.
func (p *Pool) pageDone(w *Worker) {
	p.mu.Lock()
	if w.pagesOpen > 0 {
		w.pagesOpen--
	}
	p.mu.Unlock()
	p.kick()
}
