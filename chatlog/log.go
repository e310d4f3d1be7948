// Package chatlog bridges the dispatcher's per-attempt events to both local
// structured logging (zerolog, as the teacher uses throughout
// cmd/client and cmd/server) and the host's onLog callback (spec.md §6),
// which consumes a DNSQueryLogEntry rather than a log line.
package chatlog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Status is the terminal state of one query attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Entry mirrors spec.md §3's DNS Query Log Entry.
type Entry struct {
	ID        string
	MessageID string
	Kind      string
	Server    string
	Fqdn      string
	Status    Status
	StartedAt time.Time
	EndedAt   time.Time
	Err       error
}

// Sink receives completed Entry values. A host wires its own onLog callback
// as a Sink; nil is valid and means "don't forward to the host."
type Sink func(Entry)

// Logger pairs a zerolog.Logger (local diagnostics) with an optional host
// Sink (external callback), so every attempt is recorded twice for two
// different audiences without the core depending on how the host displays
// logs.
type Logger struct {
	zl   zerolog.Logger
	sink Sink
}

// New builds a Logger writing to os.Stderr at the given level, the same
// console setup the teacher's cmd/client/main.go configures via
// zerolog.SetGlobalLevel plus a ConsoleWriter for TTY-friendly output.
func New(level zerolog.Level, sink Sink) *Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Logger{zl: zl, sink: sink}
}

// Record emits e to both the local zerolog sink and, if configured, the host
// Sink.
func (l *Logger) Record(e Entry) {
	ev := l.zl.Info()
	if e.Status == StatusFailure {
		ev = l.zl.Warn()
	}
	ev.Str("id", e.ID).
		Str("kind", e.Kind).
		Str("server", e.Server).
		Str("fqdn", e.Fqdn).
		Str("status", string(e.Status)).
		Dur("elapsed", e.EndedAt.Sub(e.StartedAt))
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg("dns query attempt")

	if l.sink != nil {
		l.sink(e)
	}
}

// Zerolog exposes the underlying logger for components (dispatch, transport)
// that want structured debug lines outside the per-attempt Entry contract.
func (l *Logger) Zerolog() *zerolog.Logger { return &l.zl }
