// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txgraph

// Stack is a generic LIFO stack. The zero value is ready to use.
type Stack[T any] struct {
	items []T
}

// NewStack creates an empty stack with optional initial capacity.
func NewStack[T any](capacity ...int) *Stack[T] {
	n := 0
	if len(capacity) > 0 {
		n = capacity[0]
	}
	return &Stack[T]{items: make([]T, 0, n)}
}

// Push adds an item to the top of the stack.
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Pop removes and returns the top item. It returns false if the stack is
// empty.
func (s *Stack[T]) Pop() (T, bool) {
	if len(s.items) == 0 {
		var zero T
		return zero, false
	}
	idx := len(s.items) - 1
	item := s.items[idx]
	s.items = s.items[:idx]
	return item, true
}

// Len returns the number of items on the stack.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// IsEmpty returns true if the stack holds no items.
func (s *Stack[T]) IsEmpty() bool {
	return len(s.items) == 0
}

// Queue is a generic FIFO queue. The zero value is ready to use.
type Queue[T any] struct {
	items []T
	head  int
}

// NewQueue creates an empty queue with optional initial capacity.
func NewQueue[T any](capacity ...int) *Queue[T] {
	n := 0
	if len(capacity) > 0 {
		n = capacity[0]
	}
	return &Queue[T]{items: make([]T, 0, n)}
}

// Enqueue adds an item to the back of the queue.
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the front item. It returns false if the
// queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	// Reclaim the consumed prefix once the queue drains.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// IsEmpty returns true if the queue holds no items.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}
