package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsCycles(t *testing.T) {
	ctx := context.Background()

	var runs int32
	s, err := New(ctx, 50*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})
	require.NoError(t, err)

	s.Start(ctx)
	defer s.Stop(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	ctx := context.Background()

	var concurrent, maxConcurrent int32
	s, err := New(ctx, 50*time.Millisecond, func(context.Context) error {
		n := atomic.AddInt32(&concurrent, 1)
		for {
			prev := atomic.LoadInt32(&maxConcurrent)
			if n <= prev || atomic.CompareAndSwapInt32(&maxConcurrent, prev, n) {
				break
			}
		}
		time.Sleep(150 * time.Millisecond)
		atomic.AddInt32(&concurrent, -1)
		return nil
	})
	require.NoError(t, err)

	s.Start(ctx)
	time.Sleep(500 * time.Millisecond)
	s.Stop(ctx)

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxConcurrent))
}

func TestSchedulerStopWaitsForRunningCycle(t *testing.T) {
	ctx := context.Background()

	started := make(chan struct{})
	var finished atomic.Bool
	s, err := New(ctx, 20*time.Millisecond, func(context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)

	s.Start(ctx)
	<-started
	s.Stop(ctx)

	assert.True(t, finished.Load())
}
