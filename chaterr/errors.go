// Package chaterr defines the closed error taxonomy shared by every
// component of the DNS chat core. No package outside chaterr invents a new
// Kind; callers classify failures with errors.As against *chaterr.Error and
// switch on Kind, the way the spec's closed-set error model requires.
package chaterr

import (
	"errors"
	"fmt"
)

// Kind is a closed set of error classifications. New values are never added
// by a caller — only by this package.
type Kind string

const (
	InputTooLong        Kind = "input_too_long"
	LabelEmpty          Kind = "label_empty"
	LabelTooLong        Kind = "label_too_long"
	RateLimited         Kind = "rate_limited"
	Backgrounded        Kind = "backgrounded"
	Cancelled           Kind = "cancelled"
	Timeout             Kind = "timeout"
	NetworkUnavailable  Kind = "network_unavailable"
	ServerUnreachable   Kind = "server_unreachable"
	InvalidResponse     Kind = "invalid_response"
	PermissionDenied    Kind = "permission_denied"
	AllTransportsFailed Kind = "all_transports_failed"
)

// Subkind narrows an InvalidResponse error to the specific envelope or
// reassembly failure that produced it.
type Subkind string

const (
	SubkindNone               Subkind = ""
	SubkindSpoofed            Subkind = "spoofed"
	SubkindEmptyResponse      Subkind = "empty_response"
	SubkindInconsistentTotal  Subkind = "inconsistent_total"
	SubkindConflictingPart    Subkind = "conflicting_part"
	SubkindIncompleteResponse Subkind = "incomplete_response"
	SubkindBufferOverflow     Subkind = "buffer_overflow"
)

// TransportAttemptError is one transport's terminal outcome within a
// dispatcher pass, recorded for AllTransportsFailed reporting.
type TransportAttemptError struct {
	Transport string
	Err       error
}

// Error is the single error type every exported function in this module
// returns. It is never wrapped in a second layer of custom error type.
type Error struct {
	Kind       Kind
	Subkind    Subkind
	Message    string
	RetryAfter float64 // seconds; only meaningful for RateLimited
	LastErrors []TransportAttemptError // only meaningful for AllTransportsFailed
	cause      error
}

func (e *Error) Error() string {
	if e.Subkind != SubkindNone {
		if e.cause != nil {
			return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Subkind, e.Message, e.cause)
		}
		return fmt.Sprintf("%s/%s: %s", e.Kind, e.Subkind, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is(err, chaterr.New(KindX, "")) match by Kind alone,
// ignoring Message/cause — convenient in tests and in dispatcher retry
// classification.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	if t.Subkind != SubkindNone && t.Subkind != e.Subkind {
		return false
	}
	return true
}

// New builds a plain Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind, preserving cause for Unwrap.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithSubkind returns an InvalidResponse-shaped error carrying a subkind.
func WithSubkind(kind Kind, subkind Subkind, message string, cause error) *Error {
	return &Error{Kind: kind, Subkind: subkind, Message: message, cause: cause}
}

// RateLimitedError builds a RateLimited error carrying retryAfter seconds.
func RateLimitedError(retryAfter float64) *Error {
	return &Error{Kind: RateLimited, Message: "admission denied", RetryAfter: retryAfter}
}

// AllTransportsFailedError builds the terminal dispatcher error carrying the
// per-transport last-error list.
func AllTransportsFailedError(lastErrors []TransportAttemptError) *Error {
	return &Error{Kind: AllTransportsFailed, Message: "every transport failed", LastErrors: lastErrors}
}

// KindOf extracts the Kind of err if it is (or wraps) a *chaterr.Error, the
// zero Kind otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
