// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStackQueue(t *testing.T) {
	t.Parallel()

	s := NewStack[int]()
	_, ok := s.Pop()
	require.False(t, ok)
	for i := 1; i <= 3; i++ {
		s.Push(i)
	}
	require.Equal(t, 3, s.Len())
	for want := 3; want >= 1; want-- {
		got, ok := s.Pop()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	require.True(t, s.IsEmpty())

	var q Queue[string]
	_, ok = q.Dequeue()
	require.False(t, ok)
	q.Enqueue("a")
	q.Enqueue("b")
	got, _ := q.Dequeue()
	require.Equal(t, "a", got)
	q.Enqueue("c")
	require.Equal(t, 2, q.Len())
	got, _ = q.Dequeue()
	require.Equal(t, "b", got)
	got, _ = q.Dequeue()
	require.Equal(t, "c", got)
	require.True(t, q.IsEmpty())

	// The queue is reusable after draining.
	q.Enqueue("d")
	got, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, "d", got)
}
