package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOnePerSubject(t *testing.T) {
	q := newQueue()

	require.NoError(t, q.enter("alice"))
	require.ErrorIs(t, q.enter("alice"), errBusy)
	require.NoError(t, q.enter("bob"))
	assert.Equal(t, 2, q.active())

	q.release("alice")
	require.NoError(t, q.enter("alice"))

	q.release("alice")
	q.release("bob")
	q.release("bob")
	assert.Zero(t, q.active())
}

func TestNLockBoundsHolders(t *testing.T) {
	l := newNLock(2)
	ctx := context.Background()

	require.NoError(t, l.lock(ctx))
	require.NoError(t, l.lock(ctx))
	assert.Equal(t, 2, l.held())

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, l.lock(waitCtx), context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		if err := l.lock(ctx); err == nil {
			close(acquired)
		}
	}()
	l.unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over after unlock")
	}
	assert.Equal(t, 2, l.held())
}

func TestNLockZeroMeansOne(t *testing.T) {
	l := newNLock(0)
	require.NoError(t, l.lock(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, l.lock(ctx), context.Canceled)
}
