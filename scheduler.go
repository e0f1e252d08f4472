package renderpool

import (
	lg "github.com/Andrej220/go-utils/zlog"
)

// The scheduler is a dedicated goroutine that:
//   - wakes on a kick after every state change that could create a
//     new matching opportunity (enqueue, worker freed, launch settled,
//     worker removed)
//   - dispatches at most one job per pass
//   - grows the roster when the head job's class is under cap
//   - exits when the pool shuts down

func (p *Pool) schedulerLoop() {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.kickCh:
			p.schedulePass()
		}
	}
}

// kick wakes the scheduler. The 1-buffered channel coalesces bursts:
// a pending wake-up already covers any number of state changes.
func (p *Pool) kick() {
	select {
	case p.kickCh <- struct{}{}:
	default:
	}
}

// schedulePass is one idempotent matching pass.
//
// Only the queue head is inspected: a head job whose class is at cap
// blocks lower-priority jobs behind it even when their workers are
// free. That is deliberate backpressure, not an oversight — scanning
// deeper would let a busy class starve behind a quiet one and changes
// the fairness contract.
//
// At most one dispatch happens per pass; the completion event it
// produces re-triggers the loop, which keeps per-pass work bounded by
// one roster scan and still drains the queue eventually.
func (p *Pool) schedulePass() {
	p.mu.Lock()
	if p.shuttingDown || p.queue.len() == 0 {
		p.mu.Unlock()
		return
	}

	head := p.queue.peek()
	class := head.job.class

	if w := p.roster.findEligible(class, p.opts.PerWorkerLimit); w != nil {
		p.queue.removeByID(head.id)
		w.busy = true
		w.pagesOpen++
		qlen := p.queue.len()
		p.mu.Unlock()

		p.metrics.IncDispatched()
		p.metrics.SetQueued(qlen)
		lg.FromContext(head.job.ctx).Info("job dispatched",
			lg.Any("job", head.id),
			lg.Any("worker", w.id),
			lg.String("class", string(class)),
		)
		go p.runJob(head, w)
		// The kick channel coalesces wake-ups, so a burst of enqueues
		// may be covered by this single pass. Re-kick to keep draining
		// while matches remain; still one dispatch per pass.
		p.kick()
		return
	}

	if p.reserveLaunch(class) {
		p.mu.Unlock()
		go func() {
			if _, err := p.launch(class); err != nil {
				// Non-fatal after warm-up: the job stays queued and the
				// next trigger retries. The loop is re-run only when a
				// launch succeeds, a deliberate narrowing of the
				// settle-triggers-rerun rule: re-kicking on failure
				// would spin the loop against a permanently failing
				// launcher.
				lg.FromContext(p.baseCtx).Warn("on-demand launch failed",
					lg.String("class", string(class)),
					lg.Any("error", err),
				)
				return
			}
			p.kick()
		}()
		return
	}

	// Class at cap with no free worker: normal backpressure.
	p.mu.Unlock()
}
