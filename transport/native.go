package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"dnschat/chaterr"
	"dnschat/label"
)

// NativeAdapter uses net.Resolver pointed at a specific server via a custom
// Dial, the closest stdlib equivalent of the platform resolver spec.md §4.4
// describes: lowest overhead, no hand-rolled wire codec, and the preferred
// first attempt when available. It returns one string per TXT record:
// net.Resolver.LookupTXT joins the character-strings of a single record
// without a separator, so they are not returned as separate segments.
type NativeAdapter struct {
	DefaultPort int
}

func NewNativeAdapter() *NativeAdapter {
	return &NativeAdapter{DefaultPort: 53}
}

func (a *NativeAdapter) Kind() Kind { return KindNative }

func (a *NativeAdapter) Query(ctx context.Context, server string, fqdn label.Fqdn) ([]string, error) {
	addr := withDefaultPort(server, a.DefaultPort)

	resolver := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: 10 * time.Second}
			return d.DialContext(ctx, network, addr)
		},
	}

	records, err := resolver.LookupTXT(ctx, string(fqdn))
	if err != nil {
		return nil, classifyNativeErr(err)
	}
	return records, nil
}

func classifyNativeErr(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return chaterr.Wrap(chaterr.Timeout, "native resolver timed out", err)
		}
		if dnsErr.IsNotFound {
			return chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindEmptyResponse, "no TXT records found", err)
		}
		return chaterr.Wrap(chaterr.ServerUnreachable, "native resolver failed", err)
	}
	if errors.Is(err, context.Canceled) {
		return chaterr.New(chaterr.Cancelled, "query cancelled")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return chaterr.Wrap(chaterr.Timeout, "native resolver deadline exceeded", err)
	}
	if os.IsPermission(err) {
		return chaterr.Wrap(chaterr.PermissionDenied, "native resolver socket refused", err)
	}
	return chaterr.Wrap(chaterr.NetworkUnavailable, "native resolver failed", err)
}
