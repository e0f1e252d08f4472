package renderpool

import (
	"container/heap"
	"time"
)

const queueCap = 64

// queuedJob is a job inside the admission queue, carrying the identity
// and ordering attributes assigned at enqueue time.
//
// The container/heap implementation requires that each element track
// its index within the heap; removeByID relies on it.
type queuedJob struct {
	// id is assigned at enqueue time, monotonically increasing, and
	// doubles as the FIFO tie-break within one priority level.
	id int64

	job      *Job
	priority int
	fut      *Future

	// queuedAt records when the job entered the queue. Only used for
	// the oldest-waiting diagnostic in Stats.
	queuedAt time.Time

	index int
}

// jobHeap — max-heap by (priority desc, id asc)
type jobHeap []*queuedJob

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].id < h[j].id
}
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x any) {
	qj := x.(*queuedJob)
	qj.index = len(*h)
	*h = append(*h, qj)
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	qj := old[n-1]
	old[n-1] = nil
	qj.index = -1
	*h = old[:n-1]
	return qj
}

// jobQueue orders pending jobs by (priority desc, enqueue order asc)
// and supports removal by id for cancellation and shutdown drain.
//
// Invariant: every job is present exactly once; ids are unique for the
// queue's lifetime. Not safe for concurrent use — the pool serializes
// access under its own lock.
type jobQueue struct {
	h    jobHeap
	byID map[int64]*queuedJob
}

func newJobQueue() *jobQueue {
	q := &jobQueue{
		h:    make(jobHeap, 0, queueCap),
		byID: make(map[int64]*queuedJob, queueCap),
	}
	heap.Init(&q.h)
	return q
}

func (q *jobQueue) push(qj *queuedJob) {
	heap.Push(&q.h, qj)
	q.byID[qj.id] = qj
}

// peek returns the highest-priority job without removing it, or nil.
func (q *jobQueue) peek() *queuedJob {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

func (q *jobQueue) pop() *queuedJob {
	if len(q.h) == 0 {
		return nil
	}
	qj := heap.Pop(&q.h).(*queuedJob)
	delete(q.byID, qj.id)
	return qj
}

// removeByID removes and returns the job with the given id, or nil if
// it is not queued (already dispatched or never existed).
func (q *jobQueue) removeByID(id int64) *queuedJob {
	qj, ok := q.byID[id]
	if !ok {
		return nil
	}
	heap.Remove(&q.h, qj.index)
	delete(q.byID, id)
	return qj
}

func (q *jobQueue) len() int { return len(q.h) }

// maxAge reports the longest waiting time among queued jobs.
func (q *jobQueue) maxAge(now time.Time) time.Duration {
	var maxAge time.Duration
	for _, qj := range q.h {
		if age := now.Sub(qj.queuedAt); age > maxAge {
			maxAge = age
		}
	}
	return maxAge
}

// drain removes and returns all queued jobs in priority order.
func (q *jobQueue) drain() []*queuedJob {
	out := make([]*queuedJob, 0, len(q.h))
	for {
		qj := q.pop()
		if qj == nil {
			return out
		}
		out = append(out, qj)
	}
}
