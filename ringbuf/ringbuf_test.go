/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package ringbuf_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanokern/nanokern/ringbuf"
)

func TestPushPopFIFOOrder(t *testing.T) {
	f := ringbuf.New[int](3)
	f.Push(1)
	f.Push(2)
	require.Equal(t, 2, f.Count())
	require.Equal(t, 1, f.Free())
	require.Equal(t, 1, f.Pop())
	require.Equal(t, 2, f.Pop())
	require.Zero(t, f.Count())
}

func TestPushFrontPopBackOrdering(t *testing.T) {
	f := ringbuf.New[int](4)
	f.Push(2)
	f.Push(3)
	f.PushFront(1)
	// buffer order head->tail is now [1, 2, 3]
	require.Equal(t, 3, f.PopBack())
	require.Equal(t, 1, f.Pop())
	require.Equal(t, 2, f.Pop())
}

func TestWrapAroundAfterPopAndPush(t *testing.T) {
	f := ringbuf.New[int](2)
	f.Push(1)
	f.Push(2)
	require.Equal(t, 1, f.Pop())
	f.Push(3)
	require.Equal(t, 2, f.Pop())
	require.Equal(t, 3, f.Pop())
}

func TestFlushClearsEverything(t *testing.T) {
	f := ringbuf.New[int](3)
	f.Push(1)
	f.Push(2)
	f.Flush()
	require.Zero(t, f.Count())
	require.Equal(t, 3, f.Free())
}
