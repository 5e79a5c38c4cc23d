package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push after Close, and by Pop once a closed
// queue is drained.
var ErrQueueClosed = errors.New("queue closed")

// BoundedQueue is a FIFO of at most capacity items. Push never blocks: when
// the queue is full the oldest item is evicted. It is safe for concurrent
// use, though each pipeline queue has one producer and one consumer.
type BoundedQueue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	onEvict  func(T)
	drops    uint64
	closed   bool

	// ready holds a token while items may be waiting.
	ready chan struct{}
	done  chan struct{}
}

// NewBoundedQueue returns a queue holding up to capacity items (at least
// one). onEvict, when set, receives each item dropped to make room.
func NewBoundedQueue[T any](capacity int, onEvict func(T)) *BoundedQueue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &BoundedQueue[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
		onEvict:  onEvict,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push appends item, evicting the oldest item if the queue is full.
func (q *BoundedQueue[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	var evicted T
	dropped := false
	if len(q.items) >= q.capacity {
		evicted = q.items[0]
		var zero T
		q.items[0] = zero
		q.items = q.items[1:]
		q.drops++
		dropped = true
	}
	q.items = append(q.items, item)
	q.signal()
	q.mu.Unlock()

	if dropped && q.onEvict != nil {
		q.onEvict(evicted)
	}
	return nil
}

// Pop removes the oldest item, waiting until one is available, ctx is done
// or the queue is closed and empty.
func (q *BoundedQueue[T]) Pop(ctx context.Context) (T, error) {
	for {
		if item, ok, closed := q.take(); ok {
			return item, nil
		} else if closed {
			return item, ErrQueueClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes the oldest item without waiting.
func (q *BoundedQueue[T]) TryPop() (T, bool) {
	item, ok, _ := q.take()
	return item, ok
}

func (q *BoundedQueue[T]) take() (item T, ok, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false, q.closed
	}
	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 {
		q.signal()
	}
	return item, true, false
}

// signal leaves a wake-up token for Pop. Callers hold q.mu.
func (q *BoundedQueue[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Len returns the number of queued items.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *BoundedQueue[T]) Cap() int { return q.capacity }

// Drops returns how many items were evicted.
func (q *BoundedQueue[T]) Drops() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drops
}

// Clear discards every queued item, passing each to onEvict.
func (q *BoundedQueue[T]) Clear() {
	q.mu.Lock()
	items := q.items
	q.items = make([]T, 0, q.capacity)
	q.mu.Unlock()

	if q.onEvict != nil {
		for _, item := range items {
			q.onEvict(item)
		}
	}
}

// Close stops further pushes. Queued items can still be popped. Close is
// idempotent.
func (q *BoundedQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}
