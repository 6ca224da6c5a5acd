package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edge-proxy/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var perSecond = domain.Window{Limit: 2, Size: time.Second}

func TestMemoryWindowStore_ApplyRecordsOnlyAdmitted(t *testing.T) {
	s := NewMemoryWindowStore(time.Second)
	ctx := context.Background()

	for i := range 2 {
		dec, err := s.Apply(ctx, "k", time.UnixMilli(int64(100*(i+1))), perSecond)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}

	dec, err := s.Apply(ctx, "k", time.UnixMilli(300), perSecond)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, time.UnixMilli(1_100).UTC(), dec.ResetAt)
	assert.Len(t, s.logs["k"], 2)
}

func TestMemoryWindowStore_SweepRemovesOnlyFullyExpiredKeys(t *testing.T) {
	s := NewMemoryWindowStore(time.Second, WithCleanupEvery(0))
	ctx := context.Background()

	_, err := s.Apply(ctx, "old", time.UnixMilli(0), perSecond)
	require.NoError(t, err)
	_, err = s.Apply(ctx, "mixed", time.UnixMilli(0), perSecond)
	require.NoError(t, err)
	_, err = s.Apply(ctx, "mixed", time.UnixMilli(600), perSecond)
	require.NoError(t, err)

	removed := s.Sweep(time.UnixMilli(1_000))

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryWindowStore_JanitorStopsWithContext(t *testing.T) {
	s := NewMemoryWindowStore(time.Millisecond, WithCleanupEvery(2*time.Millisecond))
	_, err := s.Apply(context.Background(), "k", time.Now().Add(-time.Hour), domain.Window{Limit: 1, Size: time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.StartJanitor(ctx)
	defer cancel()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 2*time.Millisecond)
}

func TestMemoryWindowStore_ConcurrentApplyNeverExceedsLimit(t *testing.T) {
	s := NewMemoryWindowStore(time.Minute)
	w := domain.Window{Limit: 10, Size: time.Minute}
	at := time.UnixMilli(1_000)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if dec, err := s.Apply(context.Background(), "k", at, w); err == nil && dec.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), admitted.Load())
	assert.Len(t, s.logs["k"], 10)
}
