// Package transport implements the four DNS query transports the
// dispatcher falls back across: native resolver, raw UDP, raw TCP, and DoH.
// Every adapter's Query call completes its caller exactly once regardless of
// how many underlying events fire — the single most common source of
// latent bugs in a system like this (spec.md §4.4/§9). The UDP and TCP
// adapters, whose watcher and I/O goroutines race, coordinate through the
// completionGate in completion.go, the way the teacher gates its
// conn.Close() with sync.Once in internal/protocol/dns_conn.go; the native
// and DoH adapters return the result of a single blocking call.
package transport

import (
	"context"

	"dnschat/label"
)

// Kind identifies one of the transports in a preference list.
type Kind string

const (
	KindNative Kind = "native"
	KindUDP    Kind = "udp"
	KindTCP    Kind = "tcp"
	KindHTTPS  Kind = "https"
	KindMock   Kind = "mock"
)

// Adapter sends one DNS TXT query to server for fqdn and returns the raw TXT
// segments from a successful response. Implementations must honor ctx
// cancellation/deadline and release all resources before returning.
type Adapter interface {
	Kind() Kind
	Query(ctx context.Context, server string, fqdn label.Fqdn) ([]string, error)
}
