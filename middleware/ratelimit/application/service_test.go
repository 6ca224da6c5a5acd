package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"edge-proxy/middleware/ratelimit/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore é um WindowStore mínimo protegido por mutex, só para os testes.
type mapStore struct {
	mu   sync.Mutex
	logs map[domain.Key][]int64
}

func newMapStore() *mapStore { return &mapStore{logs: make(map[domain.Key][]int64)} }

func (s *mapStore) Apply(_ context.Context, key domain.Key, at time.Time, w domain.Window) (domain.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, dec := domain.Slide(s.logs[key], at.UnixMilli(), w)
	if dec.Allowed {
		s.logs[key] = next
	}
	return dec, nil
}

type failingStore struct{ err error }

func (s failingStore) Apply(context.Context, domain.Key, time.Time, domain.Window) (domain.Decision, error) {
	return domain.Decision{}, s.err
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time           { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestService_Decide_AllowsWhenNoStore(t *testing.T) {
	svc := Service{Window: domain.Window{Limit: 3, Size: time.Minute}}

	dec, err := svc.Decide(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.Equal(t, 3, dec.Remaining)
}

func TestService_Decide_AdmitsUpToLimitThenRejects(t *testing.T) {
	clk := &clock{now: time.UnixMilli(1_000_000)}
	store := newMapStore()
	svc := Service{Store: store, Window: domain.Window{Limit: 2, Size: time.Minute}, Now: clk.Now}
	ctx := context.Background()

	d1, err := svc.Decide(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d1.Allowed)
	assert.Equal(t, 1, d1.Remaining)

	clk.Advance(300 * time.Millisecond)
	d2, err := svc.Decide(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, d2.Allowed)
	assert.Equal(t, 0, d2.Remaining)

	clk.Advance(300 * time.Millisecond)
	d3, err := svc.Decide(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, d3.Allowed)
	assert.Equal(t, 0, d3.Remaining)
	assert.Equal(t, time.UnixMilli(1_060_000).UTC(), d3.ResetAt)

	assert.Len(t, store.logs["1.2.3.4"], 2, "rejected attempt must not be recorded")
}

func TestService_Decide_KeysAreIndependent(t *testing.T) {
	clk := &clock{now: time.UnixMilli(5_000)}
	svc := Service{Store: newMapStore(), Window: domain.Window{Limit: 1, Size: time.Second}, Now: clk.Now}
	ctx := context.Background()

	a, err := svc.Decide(ctx, "a")
	require.NoError(t, err)
	b, err := svc.Decide(ctx, "b")
	require.NoError(t, err)

	assert.True(t, a.Allowed)
	assert.True(t, b.Allowed)
}

func TestService_Decide_WindowSlides(t *testing.T) {
	clk := &clock{now: time.UnixMilli(0)}
	svc := Service{Store: newMapStore(), Window: domain.Window{Limit: 1, Size: time.Second}, Now: clk.Now}
	ctx := context.Background()

	first, _ := svc.Decide(ctx, "k")
	require.True(t, first.Allowed)

	clk.Advance(999 * time.Millisecond)
	blocked, _ := svc.Decide(ctx, "k")
	require.False(t, blocked.Allowed)

	clk.Advance(time.Millisecond)
	again, _ := svc.Decide(ctx, "k")
	assert.True(t, again.Allowed, "entry exactly one window old no longer counts")
}

func TestService_Decide_WrapsStoreError(t *testing.T) {
	boom := errors.New("boom")
	svc := Service{Store: failingStore{err: boom}, Window: domain.Window{Limit: 1, Size: time.Second}}

	_, err := svc.Decide(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestService_Decide_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	svc := Service{Store: newMapStore(), Window: domain.Window{Limit: 10, Size: time.Hour}}

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := svc.Decide(context.Background(), "same")
			if err == nil && dec.Allowed {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), admitted.Load())
}
