package reminder

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of task ids with a single consumer. An id stays
// in-flight from Push until the consumer calls Release, and pushing an in-flight
// id again is a no-op, so a task is never queued or dispatched twice at once.
type Queue struct {
	mu       sync.Mutex
	items    []int64
	inflight map[int64]struct{}
	ready    chan struct{}
}

func NewQueue() *Queue {
	return &Queue{
		inflight: make(map[int64]struct{}),
		ready:    make(chan struct{}, 1),
	}
}

// Push enqueues id without blocking. It reports false when id was already in flight.
func (q *Queue) Push(id int64) bool {
	q.mu.Lock()
	if _, ok := q.inflight[id]; ok {
		q.mu.Unlock()
		return false
	}
	q.inflight[id] = struct{}{}
	q.items = append(q.items, id)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// Pop blocks until an id is available or ctx is done.
func (q *Queue) Pop(ctx context.Context) (int64, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items[0] = 0
			q.items = q.items[1:]
			q.mu.Unlock()
			return id, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-q.ready:
		}
	}
}

// Release ends the in-flight period of id.
func (q *Queue) Release(id int64) {
	q.mu.Lock()
	delete(q.inflight, id)
	q.mu.Unlock()
}

// Len is the number of ids waiting to be popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// InFlight is the number of ids queued or being processed.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inflight)
}
