package capability

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheCoalescesConcurrentProbes(t *testing.T) {
	var calls atomic.Int64
	release := make(chan struct{})

	c := New(func(ctx context.Context) (Record, error) {
		calls.Add(1)
		<-release
		return Record{Available: true, Platform: "test"}, nil
	})

	var wg sync.WaitGroup
	results := make([]Record, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := c.Get(context.Background())
			if err != nil {
				t.Errorf("Get error: %v", err)
				return
			}
			results[i] = rec
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let all callers reach group.Do
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 underlying probe call, got %d", got)
	}
	for _, r := range results {
		if !r.Available || r.Platform != "test" {
			t.Fatalf("unexpected result: %+v", r)
		}
	}
}

func TestCacheServesFromCacheWithinTTL(t *testing.T) {
	var calls atomic.Int64
	c := New(func(ctx context.Context) (Record, error) {
		calls.Add(1)
		return Record{Available: true}, nil
	})

	for i := 0; i < 5; i++ {
		if _, err := c.Get(context.Background()); err != nil {
			t.Fatalf("Get error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 probe call across repeated Gets within TTL, got %d", got)
	}
}

func TestCacheInvalidateForcesFreshProbe(t *testing.T) {
	var calls atomic.Int64
	c := New(func(ctx context.Context) (Record, error) {
		calls.Add(1)
		return Record{Available: true}, nil
	})

	c.Get(context.Background())
	c.Invalidate()
	c.Get(context.Background())

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 probe calls after Invalidate, got %d", got)
	}
}
