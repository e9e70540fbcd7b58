package pipeline

import "sync"

// PageQueue is the single-producer/single-consumer handoff between the
// acquisition goroutine and the processing loop. It is unbounded: the
// producer never blocks, because scan hardware cannot be throttled
// mid-page. The consumer blocks on a condition variable signaled by Push
// and Finish, so a page pushed after the done flag is set but before the
// consumer's final check is still observed (drain-after-done, not
// done-implies-empty).
type PageQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	pages []*PageBuffer
	done  bool
}

func NewPageQueue() *PageQueue {
	q := &PageQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push transfers ownership of p into the queue. It never blocks.
func (q *PageQueue) Push(p *PageBuffer) {
	q.mu.Lock()
	q.pages = append(q.pages, p)
	q.mu.Unlock()
	q.cond.Signal()
}

// TryPop transfers ownership of the oldest page out of the queue without
// blocking. ok is false when the queue is momentarily empty.
func (q *PageQueue) TryPop() (p *PageBuffer, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop blocks until a page is available or the producer has finished and the
// queue has drained; ok is false only in the latter case.
func (q *PageQueue) Pop() (p *PageBuffer, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if p, ok := q.popLocked(); ok {
			return p, true
		}
		if q.done {
			return nil, false
		}
		q.cond.Wait()
	}
}

func (q *PageQueue) popLocked() (*PageBuffer, bool) {
	if len(q.pages) == 0 {
		return nil, false
	}
	p := q.pages[0]
	q.pages[0] = nil
	q.pages = q.pages[1:]
	return p, true
}

// Finish marks the producer done. It must be called exactly once, after the
// last Push, before the producer exits, including on the error path, so the
// consumer never waits forever.
func (q *PageQueue) Finish() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// ProducerDone reports whether the producer has finished pushing.
func (q *PageQueue) ProducerDone() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

// Len reports the number of queued pages.
func (q *PageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pages)
}
