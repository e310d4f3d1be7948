package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"dnschat/chaterr"
	"dnschat/dnswire"
	"dnschat/label"
)

// UDPAdapter sends one query over a single UDP datagram socket, awaiting one
// response within ctx's deadline. Socket setup and read/write mirror the
// teacher's DnsPacketConn (internal/protocol/dns_conn.go) collapsed to a
// single request/response instead of a persistent queueing tunnel, since
// spec.md §4.4 calls for one attempt per Query invocation, not a stream.
type UDPAdapter struct {
	// DefaultPort is used when server carries no explicit port.
	DefaultPort int
}

func NewUDPAdapter() *UDPAdapter {
	return &UDPAdapter{DefaultPort: 53}
}

func (a *UDPAdapter) Kind() Kind { return KindUDP }

func (a *UDPAdapter) Query(ctx context.Context, server string, fqdn label.Fqdn) ([]string, error) {
	addr := withDefaultPort(server, a.DefaultPort)

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "resolve UDP address failed", err)
	}

	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		if isPermissionError(err) {
			return nil, chaterr.Wrap(chaterr.PermissionDenied, "socket creation refused", err)
		}
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "dial UDP failed", err)
	}
	defer conn.Close()

	q, err := dnswire.BuildQuery(fqdn)
	if err != nil {
		return nil, err
	}

	gate := newCompletionGate()

	// Cancellation/deadline watcher: releases the socket promptly so the
	// read goroutine below unblocks instead of leaking.
	go func() {
		<-ctx.Done()
		conn.SetDeadline(time.Unix(0, 0))
		if ctx.Err() == context.Canceled {
			gate.Complete(nil, chaterr.New(chaterr.Cancelled, "query cancelled"))
		} else {
			gate.Complete(nil, chaterr.New(chaterr.Timeout, "query deadline exceeded"))
		}
	}()

	go func() {
		if _, err := conn.Write(q.Bytes); err != nil {
			gate.Complete(nil, chaterr.Wrap(chaterr.ServerUnreachable, "send query failed", err))
			return
		}

		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || isTimeoutOrClosed(err) {
				// The ctx watcher already delivered Timeout/Cancelled, or
				// will shortly; either way this goroutine must not report
				// a second outcome.
				return
			}
			gate.Complete(nil, chaterr.Wrap(chaterr.ServerUnreachable, "read response failed", err))
			return
		}

		segments, err := dnswire.ParseResponse(q, buf[:n])
		if err != nil {
			gate.Complete(nil, err)
			return
		}
		gate.Complete(segments, nil)
	}()

	return gate.Wait()
}

func isTimeoutOrClosed(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func isPermissionError(err error) bool {
	return os.IsPermission(err)
}
