package dispatch

import "sync"

// inflightResult is what every awaiter of a deduplicated query receives.
type inflightResult struct {
	segments []string
	err      error
}

// inflightEntry is one in-flight (server, fqdn) attempt; awaiters block on
// done until the owner closes it, then all read result without
// synchronization (closing a channel happens-before every receive).
type inflightEntry struct {
	done   chan struct{}
	result inflightResult
}

// inflightTable coalesces concurrent Execute calls with an identical
// (server, fqdn) pair into a single adapter attempt, per spec.md §4.5/§9.
// This generalizes the teacher's SessionManager pattern
// (internal/server/session.go) — a mutex-guarded map keyed by an identifier,
// entries created once and shared — to a request/response dedup table
// instead of a long-lived session store.
type inflightTable struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
}

func newInflightTable() *inflightTable {
	return &inflightTable{entries: make(map[string]*inflightEntry)}
}

// join either becomes the owner of a new attempt for key (isOwner == true,
// caller must call finish) or returns the existing entry, whose result the
// caller then waits for with await.
func (t *inflightTable) join(key string) (entry *inflightEntry, isOwner bool) {
	t.mu.Lock()
	if existing, ok := t.entries[key]; ok {
		t.mu.Unlock()
		return existing, false
	}
	entry = &inflightEntry{done: make(chan struct{})}
	t.entries[key] = entry
	t.mu.Unlock()
	return entry, true
}

// finish delivers the result to every awaiter and removes the entry so the
// next Execute for this key issues a fresh attempt.
func (t *inflightTable) finish(key string, entry *inflightEntry, segments []string, err error) {
	entry.result = inflightResult{segments: segments, err: err}
	close(entry.done)

	t.mu.Lock()
	if t.entries[key] == entry {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// await blocks until entry's owner calls finish.
func (e *inflightEntry) await() ([]string, error) {
	<-e.done
	return e.result.segments, e.result.err
}
