package renderpool

// roster tracks live workers plus in-flight launches per class.
//
// Counting launches toward the class cap is what keeps concurrent
// scheduler passes from overshooting it: a slot is reserved before the
// (slow) launch starts and released when it settles.
//
// Not safe for concurrent use — always accessed under the pool lock.
type roster struct {
	workers   map[int64]*Worker
	live      map[Capability]int
	launching map[Capability]int
}

func newRoster() *roster {
	return &roster{
		workers:   make(map[int64]*Worker),
		live:      make(map[Capability]int),
		launching: make(map[Capability]int),
	}
}

func (r *roster) add(w *Worker) {
	r.workers[w.id] = w
	r.live[w.class]++
}

// remove deletes the worker and returns it, or nil if it was already
// gone (e.g. the crash watcher raced an explicit Kill).
func (r *roster) remove(id int64) *Worker {
	w, ok := r.workers[id]
	if !ok {
		return nil
	}
	delete(r.workers, id)
	r.live[w.class]--
	return w
}

// findEligible returns any idle, connected worker of the given class
// with a free page slot, or nil.
func (r *roster) findEligible(class Capability, perWorkerLimit int) *Worker {
	for _, w := range r.workers {
		if w.eligible(class, perWorkerLimit) {
			return w
		}
	}
	return nil
}

// occupied reports the class count relevant to the cap check:
// live workers plus launches already in flight.
func (r *roster) occupied(class Capability) int {
	return r.live[class] + r.launching[class]
}

func (r *roster) total() int { return len(r.workers) }

func (r *roster) busyIdle() (busy, idle int) {
	for _, w := range r.workers {
		if w.busy {
			busy++
		} else {
			idle++
		}
	}
	return busy, idle
}

func (r *roster) perClass() map[Capability]int {
	out := make(map[Capability]int, len(r.live))
	for class, n := range r.live {
		if n > 0 {
			out[class] = n
		}
	}
	return out
}

func (r *roster) all() []*Worker {
	out := make([]*Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out
}
