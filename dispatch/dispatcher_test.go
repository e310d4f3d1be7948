package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"dnschat/chaterr"
	"dnschat/chatconfig"
	"dnschat/transport"
)

func testConfig() chatconfig.Config {
	cfg := chatconfig.DefaultConfig()
	cfg.QueryTimeout = 200 * time.Millisecond
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	cfg.MaxRetries = 3
	return cfg
}

func TestExecuteHappyPathNativeFirst(t *testing.T) {
	native := &transport.MockAdapter{Responses: []transport.MockResponse{{Segments: []string{"hello"}}}}
	d := New(testConfig(), map[transport.Kind]transport.Adapter{
		transport.KindNative: native,
	}, nil)

	result, err := d.Execute(context.Background(), Request{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Reassembled != "hello" {
		t.Fatalf("reassembled = %q, want hello", result.Reassembled)
	}
	if result.TransportUsed != transport.KindNative {
		t.Fatalf("transport used = %v, want native", result.TransportUsed)
	}
	if native.Calls() != 1 {
		t.Fatalf("native calls = %d, want 1", native.Calls())
	}
}

func TestExecuteFallsBackToNextTransport(t *testing.T) {
	native := &transport.MockAdapter{Responses: []transport.MockResponse{{Err: chaterr.New(chaterr.NetworkUnavailable, "down")}}}
	udp := &transport.MockAdapter{Responses: []transport.MockResponse{{Segments: []string{"ok"}}}}
	d := New(testConfig(), map[transport.Kind]transport.Adapter{
		transport.KindNative: native,
		transport.KindUDP:    udp,
	}, nil)

	result, err := d.Execute(context.Background(), Request{Text: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TransportUsed != transport.KindUDP {
		t.Fatalf("transport used = %v, want udp", result.TransportUsed)
	}
}

func TestExecuteAllTransportsFailedAfterRetries(t *testing.T) {
	fail := func() *transport.MockAdapter {
		responses := make([]transport.MockResponse, 0, 3)
		for i := 0; i < 3; i++ {
			responses = append(responses, transport.MockResponse{Err: chaterr.New(chaterr.ServerUnreachable, "no route")})
		}
		return &transport.MockAdapter{Responses: responses}
	}
	native := fail()
	cfg := testConfig()
	d := New(cfg, map[transport.Kind]transport.Adapter{transport.KindNative: native}, nil)

	_, err := d.Execute(context.Background(), Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.AllTransportsFailed {
		t.Fatalf("kind = %v, ok=%v, want AllTransportsFailed", kind, ok)
	}
	if native.Calls() != int64(cfg.MaxRetries) {
		t.Fatalf("calls = %d, want %d", native.Calls(), cfg.MaxRetries)
	}
}

func TestExecuteCancelledDoesNotRetry(t *testing.T) {
	native := &transport.MockAdapter{Responses: []transport.MockResponse{{Err: chaterr.New(chaterr.Cancelled, "client cancelled")}}}
	d := New(testConfig(), map[transport.Kind]transport.Adapter{transport.KindNative: native}, nil)

	_, err := d.Execute(context.Background(), Request{Text: "hi"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.Cancelled {
		t.Fatalf("kind = %v, ok=%v, want Cancelled", kind, ok)
	}
	if native.Calls() != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on cancellation)", native.Calls())
	}
}

func TestExecuteRejectsWhileBackgrounded(t *testing.T) {
	native := &transport.MockAdapter{Responses: []transport.MockResponse{{Segments: []string{"x"}}}}
	d := New(testConfig(), map[transport.Kind]transport.Adapter{transport.KindNative: native}, nil)
	d.Lifecycle.SetBackground()

	_, err := d.Execute(context.Background(), Request{Text: "hi"})
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.Backgrounded {
		t.Fatalf("kind = %v, ok=%v, want Backgrounded", kind, ok)
	}
	if native.Calls() != 0 {
		t.Fatalf("calls = %d, want 0", native.Calls())
	}
}

func TestExecuteRateLimitsAfterCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitCapacity = 1
	cfg.RateLimitWindow = time.Minute
	native := &transport.MockAdapter{Responses: []transport.MockResponse{
		{Segments: []string{"a"}},
		{Segments: []string{"b"}},
	}}
	d := New(cfg, map[transport.Kind]transport.Adapter{transport.KindNative: native}, nil)

	if _, err := d.Execute(context.Background(), Request{Text: "one"}); err != nil {
		t.Fatalf("first call unexpected error: %v", err)
	}
	_, err := d.Execute(context.Background(), Request{Text: "two"})
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.RateLimited {
		t.Fatalf("kind = %v, ok=%v, want RateLimited", kind, ok)
	}
}

func TestExecuteRejectsDisallowedServer(t *testing.T) {
	d := New(testConfig(), map[transport.Kind]transport.Adapter{}, nil)
	_, err := d.Execute(context.Background(), Request{Text: "hi", Server: "evil.example"})
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.ServerUnreachable {
		t.Fatalf("kind = %v, ok=%v, want ServerUnreachable", kind, ok)
	}
}

func TestExecuteDropsHTTPSForDoHDisabledZone(t *testing.T) {
	cfg := testConfig()
	cfg.Preference = []transport.Kind{transport.KindHTTPS}
	d := New(cfg, map[transport.Kind]transport.Adapter{}, nil)

	_, err := d.Execute(context.Background(), Request{Text: "hi"})
	kind, ok := chaterr.KindOf(err)
	if !ok || kind != chaterr.AllTransportsFailed {
		t.Fatalf("kind = %v, ok=%v, want AllTransportsFailed (https filtered, no adapters left)", kind, ok)
	}
}

func TestExecuteDeduplicatesConcurrentIdenticalRequests(t *testing.T) {
	release := make(chan struct{})
	native := &transport.MockAdapter{Responses: []transport.MockResponse{
		{Segments: []string{"shared"}, Delay: release},
	}}
	d := New(testConfig(), map[transport.Kind]transport.Adapter{transport.KindNative: native}, nil)

	const n = 5
	var wg sync.WaitGroup
	results := make([]Result, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Execute(context.Background(), Request{Text: "same text"})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: unexpected error: %v", i, errs[i])
		}
		if results[i].Reassembled != "shared" {
			t.Fatalf("goroutine %d: reassembled = %q, want shared", i, results[i].Reassembled)
		}
	}
	if native.Calls() != 1 {
		t.Fatalf("adapter calls = %d, want exactly 1 (deduplicated)", native.Calls())
	}
}

func TestBackoffDelayCapsAtMax(t *testing.T) {
	base := 10 * time.Millisecond
	max := 25 * time.Millisecond
	if got := backoffDelay(1, base, max); got != base {
		t.Fatalf("pass 1 = %v, want %v", got, base)
	}
	if got := backoffDelay(2, base, max); got != 20*time.Millisecond {
		t.Fatalf("pass 2 = %v, want 20ms", got)
	}
	if got := backoffDelay(3, base, max); got != max {
		t.Fatalf("pass 3 = %v, want capped at %v", got, max)
	}
}
