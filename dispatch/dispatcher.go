// Package dispatch implements the ordered-fallback, retrying, deduplicating
// query dispatcher of spec.md §4.5. It is the component every other piece of
// this module feeds into: label for admission, transport for attempts,
// reassemble for the final payload, ratelimit and the lifecycle flag for
// admission gating.
package dispatch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"dnschat/chaterr"
	"dnschat/chatconfig"
	"dnschat/chatlog"
	"dnschat/label"
	"dnschat/ratelimit"
	"dnschat/reassemble"
	"dnschat/transport"
)

// Request is one user-initiated chat query, spec.md §4.5.
type Request struct {
	ConversationID string
	Text           string
	Zone           string          // overrides Config.Zone if non-empty
	Server         string          // overrides Config.DefaultServer if non-empty
	Preference     []transport.Kind // overrides Config.Preference if non-empty
}

// AttemptLog is one transport attempt within a dispatch pass.
type AttemptLog struct {
	Pass      int
	Transport transport.Kind
	Status    chatlog.Status
	Err       error
}

// Result is spec.md §4.5's dispatcher result, enriched with the request's
// echoed RequestID so a host collaborator can discard stale results
// (spec.md §9's "stale-result race").
type Result struct {
	RequestID     string
	Records       []string
	Reassembled   string
	TransportUsed transport.Kind
	Attempts      []AttemptLog
}

// Dispatcher wires sanitization, rate limiting, lifecycle gating,
// deduplication, and ordered transport fallback into spec.md §4.5's
// execute() contract.
type Dispatcher struct {
	Config    chatconfig.Config
	Adapters  map[transport.Kind]transport.Adapter
	Limiter   *ratelimit.Limiter
	Lifecycle *Lifecycle
	Logger    *chatlog.Logger

	inflight  *inflightTable
	requestNo atomic.Uint64
}

// New builds a Dispatcher. adapters must contain an entry for every Kind
// named in cfg.Preference that the caller wants usable; a Kind with no
// adapter registered is silently skipped in the fallback order.
func New(cfg chatconfig.Config, adapters map[transport.Kind]transport.Adapter, logger *chatlog.Logger) *Dispatcher {
	return &Dispatcher{
		Config:    cfg,
		Adapters:  adapters,
		Limiter:   ratelimit.New(cfg.RateLimitWindow, cfg.RateLimitCapacity),
		Lifecycle: &Lifecycle{},
		Logger:    logger,
		inflight:  newInflightTable(),
	}
}

// Execute runs spec.md §4.5's admission, dedup, and fallback/retry sequence.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	requestID := d.nextRequestID()

	zone := req.Zone
	if zone == "" {
		zone = d.Config.Zone
	}
	server := req.Server
	if server == "" {
		server = d.Config.DefaultServer
	}
	if !d.Config.ServerAllowed(server) {
		return Result{RequestID: requestID}, chaterr.New(chaterr.ServerUnreachable, "server is not in the allowed list")
	}

	// (i) sanitize and compose FQDN — before any network I/O or rate-limit
	// consumption, per spec.md §4.1/§4.5.
	l, err := label.Sanitize(req.Text)
	if err != nil {
		return Result{RequestID: requestID}, err
	}
	fqdn, err := label.ComposeFqdn(l, zone)
	if err != nil {
		return Result{RequestID: requestID}, err
	}

	// (ii) lifecycle is captured exactly once, here, per spec.md §4.5/§9.
	if d.Lifecycle.snapshot() {
		return Result{RequestID: requestID}, chaterr.New(chaterr.Backgrounded, "query initiated while backgrounded")
	}

	// (iii) rate limiter.
	if !d.Limiter.Admit() {
		retryAfter := d.Limiter.RetryAfter().Seconds()
		return Result{RequestID: requestID}, chaterr.RateLimitedError(retryAfter)
	}

	// (iv) deduplicate on (server, fqdn).
	key := server + "|" + string(fqdn)
	entry, isOwner := d.inflight.join(key)
	if !isOwner {
		segments, err := entry.await()
		if err != nil {
			return Result{RequestID: requestID}, err
		}
		reassembled, err := reassemble.Reassemble(segments)
		if err != nil {
			return Result{RequestID: requestID}, err
		}
		return Result{RequestID: requestID, Records: segments, Reassembled: reassembled}, nil
	}

	preference := req.Preference
	if len(preference) == 0 {
		preference = d.Config.Preference
	}
	preference = d.filterDoHByZonePolicy(preference, zone)

	segments, transportUsed, attempts, err := d.fallbackLoop(ctx, server, fqdn, preference)
	d.inflight.finish(key, entry, segments, err)

	result := Result{RequestID: requestID, TransportUsed: transportUsed, Attempts: attempts}
	if err != nil {
		return result, err
	}

	reassembled, err := reassemble.Reassemble(segments)
	if err != nil {
		return result, err
	}
	result.Records = segments
	result.Reassembled = reassembled
	return result, nil
}

// filterDoHByZonePolicy drops KindHTTPS from preference when the zone
// disables it (spec.md §4.4/§6: ch.at by default).
func (d *Dispatcher) filterDoHByZonePolicy(preference []transport.Kind, zone string) []transport.Kind {
	if d.Config.DoHEnabledForZone(zone) {
		return preference
	}
	out := make([]transport.Kind, 0, len(preference))
	for _, k := range preference {
		if k != transport.KindHTTPS {
			out = append(out, k)
		}
	}
	return out
}

// fallbackLoop implements spec.md §4.5's ordered fallback with bounded
// exponential-backoff retry across passes.
func (d *Dispatcher) fallbackLoop(ctx context.Context, server string, fqdn label.Fqdn, preference []transport.Kind) ([]string, transport.Kind, []AttemptLog, error) {
	var attempts []AttemptLog
	lastErrors := make(map[transport.Kind]error)

	for pass := 1; pass <= d.Config.MaxRetries; pass++ {
		for _, kind := range preference {
			adapter, ok := d.Adapters[kind]
			if !ok {
				continue
			}

			startedAt := time.Now()
			segments, err := d.attemptOnce(ctx, adapter, server, fqdn)
			status := chatlog.StatusSuccess
			if err != nil {
				status = chatlog.StatusFailure
			}
			attempts = append(attempts, AttemptLog{Pass: pass, Transport: kind, Status: status, Err: err})
			if d.Logger != nil {
				d.Logger.Record(chatlog.Entry{
					ID: fmt.Sprintf("%d-%s", pass, kind), Kind: string(kind),
					Server: server, Fqdn: string(fqdn), Status: status,
					StartedAt: startedAt, EndedAt: time.Now(), Err: err,
				})
			}

			if err == nil {
				return segments, kind, attempts, nil
			}

			if kind2, ok := chaterr.KindOf(err); ok && (kind2 == chaterr.Cancelled || kind2 == chaterr.Backgrounded) {
				return nil, "", attempts, err
			}

			lastErrors[kind] = err
		}

		if pass < d.Config.MaxRetries {
			delay := backoffDelay(pass, d.Config.RetryBaseDelay, d.Config.RetryMaxDelay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, "", attempts, chaterr.New(chaterr.Cancelled, "cancelled during retry backoff")
			}
		}
	}

	var last []chaterr.TransportAttemptError
	for _, kind := range preference {
		if err, ok := lastErrors[kind]; ok {
			last = append(last, chaterr.TransportAttemptError{Transport: string(kind), Err: err})
		}
	}
	return nil, "", attempts, chaterr.AllTransportsFailedError(last)
}

// attemptOnce calls one adapter with the per-attempt deadline spec.md §4.5
// requires (10s default).
func (d *Dispatcher) attemptOnce(ctx context.Context, adapter transport.Adapter, server string, fqdn label.Fqdn) ([]string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.Config.QueryTimeout)
	defer cancel()
	return adapter.Query(attemptCtx, server, fqdn)
}

// backoffDelay implements spec.md §4.5: min(base * 2^(pass-1), max).
func backoffDelay(pass int, base, max time.Duration) time.Duration {
	delay := base
	for i := 1; i < pass; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// nextRequestID mints a small opaque token a host can echo back for the
// stale-result check spec.md §9 assigns to the collaborator.
func (d *Dispatcher) nextRequestID() string {
	seq := d.requestNo.Add(1)
	var nonce [4]byte
	rand.Read(nonce[:])
	return fmt.Sprintf("%d-%s", seq, hex.EncodeToString(nonce[:]))
}
