package msgworker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_SameChatKeepsOrder(t *testing.T) {
	pool := NewPool(4, 100)
	pool.Start(context.Background())

	var mu sync.Mutex
	var got []int
	for i := 1; i <= 5; i++ {
		val := i
		require.True(t, pool.TryDispatch(Job{
			DeviceID: "dev-1",
			ChatJID:  "9779841234567@s.whatsapp.net",
			Handler: func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				got = append(got, val)
				mu.Unlock()
				return nil
			},
		}))
	}

	pool.Stop()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestPool_StopDrainsQueuedJobs(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start(context.Background())

	var completed atomic.Int32
	for i := 0; i < 6; i++ {
		pool.Dispatch(Job{
			DeviceID: "dev-1",
			ChatJID:  fmt.Sprintf("chat-%d", i),
			Handler: func(ctx context.Context) error {
				time.Sleep(10 * time.Millisecond)
				completed.Add(1)
				return nil
			},
		})
	}

	pool.Stop()
	assert.Equal(t, int32(6), completed.Load())
	assert.False(t, pool.TryDispatch(Job{DeviceID: "dev-1", ChatJID: "late", Handler: func(context.Context) error { return nil }}))
	assert.Equal(t, int64(1), pool.Stats().TotalDropped)
}

func TestPool_FullQueueDrops(t *testing.T) {
	pool := NewPool(1, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	pool.Start(context.Background())
	defer pool.Stop()

	require.True(t, pool.TryDispatch(Job{DeviceID: "d", ChatJID: "c", Handler: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	require.True(t, pool.TryDispatch(Job{DeviceID: "d", ChatJID: "c", Handler: func(context.Context) error { return nil }}))
	assert.False(t, pool.TryDispatch(Job{DeviceID: "d", ChatJID: "c", Handler: func(context.Context) error { return nil }}))
	close(release)
}

func TestPool_CountsErrorsAndPanics(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Start(context.Background())

	pool.Dispatch(Job{DeviceID: "d", ChatJID: "a", Handler: func(context.Context) error { return errors.New("boom") }})
	pool.Dispatch(Job{DeviceID: "d", ChatJID: "b", Handler: func(context.Context) error { panic("bad handler") }})
	pool.Stop()

	stats := pool.Stats()
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, int64(2), stats.TotalProcessed)
	assert.Equal(t, 0, stats.ActiveWorkers)
}

func TestPool_ShardIsStableAndSpread(t *testing.T) {
	pool := NewPool(4, 10)

	first := pool.shardFor("dev-1", "chat-123")
	assert.Equal(t, first, pool.shardFor("dev-1", "chat-123"))
	assert.GreaterOrEqual(t, first, 0)
	assert.Less(t, first, 4)

	counts := make(map[int]int)
	for i := 0; i < 400; i++ {
		counts[pool.shardFor("dev-1", fmt.Sprintf("chat-%d", i))]++
	}
	require.Len(t, counts, 4)
	for shard, n := range counts {
		assert.Greater(t, n, 50, "worker %d underused", shard)
	}
}
