package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"

	"dnschat/chaterr"
	"dnschat/dnswire"
	"dnschat/label"
)

// dnsMessageContentType is the RFC 8484 media type for both request and
// response bodies.
const dnsMessageContentType = "application/dns-message"

// DoHAdapter issues an RFC 8484 DNS-over-HTTPS request, grounded on the
// Intra Android client's doh.Transport (context-scoped HTTP client, POST of
// the raw wire query, classified error codes). Spec.md §4.4 calls this the
// only transport usable from an environment that forbids outbound port 53.
type DoHAdapter struct {
	Endpoint string // e.g. "https://dns.google/dns-query"
	Client   *http.Client
	// UseGET issues a GET with a base64url dns= parameter (RFC 8484 §4.1)
	// instead of a POST; both are spec-legal, POST is the default.
	UseGET bool
}

func NewDoHAdapter(endpoint string) *DoHAdapter {
	return &DoHAdapter{Endpoint: endpoint, Client: &http.Client{}}
}

func (a *DoHAdapter) Kind() Kind { return KindHTTPS }

func (a *DoHAdapter) Query(ctx context.Context, _ string, fqdn label.Fqdn) ([]string, error) {
	q, err := dnswire.BuildQuery(fqdn)
	if err != nil {
		return nil, err
	}

	req, err := a.buildRequest(ctx, q)
	if err != nil {
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "failed to build DoH request", err)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, chaterr.New(chaterr.Cancelled, "query cancelled")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, chaterr.Wrap(chaterr.Timeout, "DoH request deadline exceeded", err)
		}
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "DoH request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "DoH endpoint returned non-200 status", errors.New(resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxTCPResponseBytes))
	if err != nil {
		return nil, chaterr.Wrap(chaterr.ServerUnreachable, "failed to read DoH response body", err)
	}

	return dnswire.ParseResponse(q, body)
}

func (a *DoHAdapter) buildRequest(ctx context.Context, q *dnswire.Query) (*http.Request, error) {
	if a.UseGET {
		encoded := base64.RawURLEncoding.EncodeToString(q.Bytes)
		u, err := url.Parse(a.Endpoint)
		if err != nil {
			return nil, err
		}
		query := u.Query()
		query.Set("dns", encoded)
		u.RawQuery = query.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", dnsMessageContentType)
		return req, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Endpoint, bytes.NewReader(q.Bytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", dnsMessageContentType)
	req.Header.Set("Accept", dnsMessageContentType)
	return req, nil
}
