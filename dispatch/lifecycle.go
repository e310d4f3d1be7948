package dispatch

import "sync/atomic"

// Lifecycle is {foreground, background} per spec.md §3/§5. Queries may only
// be initiated while foreground; a background transition is observed by
// execute() exactly once, at entry, per spec.md §4.5/§9 — never re-read
// mid-call, or the behavior becomes non-deterministic under a flip.
type Lifecycle struct {
	background atomic.Bool
}

// SetForeground marks the host as foreground.
func (l *Lifecycle) SetForeground() { l.background.Store(false) }

// SetBackground marks the host as background; in-flight attempts are
// permitted to run to completion (spec.md §5) but no new Execute call will
// pass admission until the host returns to foreground.
func (l *Lifecycle) SetBackground() { l.background.Store(true) }

// snapshot captures the current state once, for a single Execute call to
// consult exactly one time.
func (l *Lifecycle) snapshot() bool { return l.background.Load() }
