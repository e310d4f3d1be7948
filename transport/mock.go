package transport

import (
	"context"
	"sync/atomic"

	"dnschat/label"
)

// MockAdapter is a scriptable in-memory transport for dispatcher and
// integration tests; it never touches the network. Responses is consumed in
// FIFO order across successive Query calls.
type MockAdapter struct {
	Responses []MockResponse
	calls     atomic.Int64
}

// MockResponse scripts one Query outcome: either Segments or Err, not both.
type MockResponse struct {
	Segments []string
	Err      error
	// Delay, if set, is awaited (or ctx cancellation observed first) before
	// completing — used to hold an attempt open, e.g. while concurrent
	// identical requests join it, or to race it against a timeout/cancel.
	Delay <-chan struct{}
}

func (a *MockAdapter) Kind() Kind { return KindMock }

func (a *MockAdapter) Calls() int64 { return a.calls.Load() }

func (a *MockAdapter) Query(ctx context.Context, _ string, _ label.Fqdn) ([]string, error) {
	idx := a.calls.Add(1) - 1
	if int(idx) >= len(a.Responses) {
		return nil, ctx.Err()
	}
	resp := a.Responses[idx]

	if resp.Delay != nil {
		select {
		case <-resp.Delay:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return resp.Segments, resp.Err
}
