package harness

import (
	"sync"

	"github.com/roach88/seqcheck/internal/trace"
)

// postQueue is a thread-safe FIFO of posted events awaiting a pump.
//
// The queue is unbounded so a producer can post any number of follow-ups
// without blocking on the consumer.
type postQueue struct {
	mu     sync.Mutex
	events []trace.Event
	closed bool
}

func newPostQueue() *postQueue {
	return &postQueue{events: make([]trace.Event, 0, 16)}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *postQueue) Enqueue(e trace.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)
	return true
}

// TryDequeue removes the front event without blocking.
// Returns (trace.Event{}, false) if the queue is empty.
func (q *postQueue) TryDequeue() (trace.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return trace.Event{}, false
	}

	e := q.events[0]
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Len returns the current queue length.
func (q *postQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close rejects further posts. Queued events stay pumpable.
func (q *postQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
