package transport

import "sync"

// result is the payload of a single terminal outcome.
type result struct {
	segments []string
	err      error
}

// completionGate guarantees that exactly one of its Complete calls is
// observed by the waiter, no matter how many independent event sources
// (timeout, data, socket error, cancellation) fire concurrently. This maps
// the teacher's sync.Once-guarded Close() (internal/protocol/dns_conn.go)
// onto a send-once result channel, per spec.md §4.4/§5/§9.
type completionGate struct {
	once sync.Once
	ch   chan result
}

func newCompletionGate() *completionGate {
	return &completionGate{ch: make(chan result, 1)}
}

// Complete reports a terminal outcome. Only the first call has any effect;
// later calls (from events that lost the race) are silently discarded.
func (g *completionGate) Complete(segments []string, err error) {
	g.once.Do(func() {
		g.ch <- result{segments: segments, err: err}
	})
}

// Wait blocks for the single terminal outcome.
func (g *completionGate) Wait() ([]string, error) {
	r := <-g.ch
	return r.segments, r.err
}
