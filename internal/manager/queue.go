package manager

import "sync"

// Queue is an unbounded multi-producer, single-consumer event queue. Publish
// never blocks; Drain returns everything queued so far in arrival order.
// Growth is unbounded if the consumer stalls.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

func NewQueue() *Queue { return &Queue{} }

func (q *Queue) Publish(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain removes and returns all queued events. It returns nil when empty.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Len reports the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
