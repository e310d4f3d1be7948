// Package dnschat is the public facade of the DNS-over-transport chat
// client core: it turns a plaintext prompt into a DNS TXT query against a
// configured zone, dispatches it across native/UDP/TCP/DoH transports with
// fallback, retry, rate-limiting, and deduplication, and reassembles the
// multi-part TXT answer into one reply. Everything underneath (dispatch,
// transport, label, reassemble, ratelimit, capability) is composed here into
// the single entry point a host embeds, the same way the teacher's
// cmd/client/main.go composes its TunnelManager from lower-level pieces.
package dnschat

import (
	"context"

	"github.com/rs/zerolog"

	"dnschat/capability"
	"dnschat/chatconfig"
	"dnschat/chatlog"
	"dnschat/dispatch"
	"dnschat/label"
	"dnschat/transport"
)

// Client is the DNS chat core. It is safe for concurrent use: admission,
// deduplication, and rate-limiting are all internally synchronized.
type Client struct {
	dispatcher *dispatch.Dispatcher
	capability *capability.Cache
	onCapChanged func(capability.Record)
}

// Option configures a Client at construction time.
type Option func(*clientBuild)

type clientBuild struct {
	config       chatconfig.Config
	adapters     map[transport.Kind]transport.Adapter
	logSink      chatlog.Sink
	logLevel     zerolog.Level
	prober       capability.Prober
	onCapChanged func(capability.Record)
}

// WithConfig overrides the default chatconfig.Config (spec.md §6 literals).
func WithConfig(cfg chatconfig.Config) Option {
	return func(b *clientBuild) { b.config = cfg }
}

// WithLogSink registers a callback that receives every chatlog.Entry,
// wiring a host's onLog collaborator (spec.md §6).
func WithLogSink(sink chatlog.Sink) Option {
	return func(b *clientBuild) { b.logSink = sink }
}

// WithLogLevel sets the local zerolog verbosity; defaults to zerolog.InfoLevel.
func WithLogLevel(level zerolog.Level) Option {
	return func(b *clientBuild) { b.logLevel = level }
}

// WithCapabilityProber installs the platform-specific probe a host uses to
// answer spec.md §4.7's capability questions (custom server support, async
// query support, API level). Without one, Capabilities always reports
// Available: false.
func WithCapabilityProber(prober capability.Prober) Option {
	return func(b *clientBuild) { b.prober = prober }
}

// WithOnCapabilityChanged registers a callback that InvalidateCapabilities
// invokes with the Record of the fresh probe it triggers, wiring a host's
// onCapabilityChanged collaborator. A re-probe after TTL expiry inside
// Capabilities does not invoke it.
func WithOnCapabilityChanged(fn func(capability.Record)) Option {
	return func(b *clientBuild) { b.onCapChanged = fn }
}

// WithTransports overrides the default transport.Kind -> transport.Adapter
// wiring, e.g. to inject transport.MockAdapter in a host's own tests.
func WithTransports(adapters map[transport.Kind]transport.Adapter) Option {
	return func(b *clientBuild) { b.adapters = adapters }
}

// NewClient builds a Client from spec.md §6's defaults, overridden by opts.
func NewClient(opts ...Option) *Client {
	build := clientBuild{
		config:   chatconfig.DefaultConfig(),
		logLevel: zerolog.InfoLevel,
	}
	for _, opt := range opts {
		opt(&build)
	}

	adapters := build.adapters
	if adapters == nil {
		adapters = defaultAdapters(build.config)
	}

	logger := chatlog.New(build.logLevel, build.logSink)
	dispatcher := dispatch.New(build.config, adapters, logger)

	prober := build.prober
	if prober == nil {
		prober = unavailableProber
	}

	return &Client{
		dispatcher:   dispatcher,
		capability:   capability.New(prober),
		onCapChanged: build.onCapChanged,
	}
}

func defaultAdapters(cfg chatconfig.Config) map[transport.Kind]transport.Adapter {
	return map[transport.Kind]transport.Adapter{
		transport.KindNative: transport.NewNativeAdapter(),
		transport.KindUDP:    transport.NewUDPAdapter(),
		transport.KindTCP:    transport.NewTCPAdapter(),
		transport.KindHTTPS:  transport.NewDoHAdapter(cfg.DoHEndpoint),
	}
}

// unavailableProber is the zero-value Prober: a host that never configures
// WithCapabilityProber gets a well-formed "nothing is available" Record
// rather than a nil-function panic.
func unavailableProber(ctx context.Context) (capability.Record, error) {
	return capability.Record{Available: false}, nil
}

// Execute runs one chat prompt to completion: sanitize, admit, dispatch
// across transports with fallback and retry, reassemble. The returned error
// is always either nil or a *chaterr.Error; callers should inspect Kind via
// chaterr.KindOf rather than string-matching Error().
func (c *Client) Execute(ctx context.Context, req Request) (Result, error) {
	result, err := c.dispatcher.Execute(ctx, req.toDispatch())
	if err != nil {
		return Result{RequestID: result.RequestID}, err
	}
	return resultFromDispatch(result), nil
}

// Sanitize exposes spec.md §4.1's label sanitization standalone, so a host
// can validate or preview input (e.g. in a text field) without dispatching
// a query.
func (c *Client) Sanitize(text string) (string, error) {
	l, err := label.Sanitize(text)
	if err != nil {
		return "", err
	}
	return string(l), nil
}

// Capabilities returns the current (possibly cached) capability record,
// spec.md §4.7, performing a fresh probe if the cache has expired or was
// never populated.
func (c *Client) Capabilities(ctx context.Context) (capability.Record, error) {
	rec, err := c.capability.Get(ctx)
	if err != nil {
		return capability.Record{}, err
	}
	return rec, nil
}

// InvalidateCapabilities drops the cached capability record and, if a
// callback was registered via WithOnCapabilityChanged, triggers a fresh
// probe and reports the result — a host calls this on a network-change
// signal (spec.md §3/§4.7/§6).
func (c *Client) InvalidateCapabilities(ctx context.Context) {
	c.capability.Invalidate()
	if c.onCapChanged == nil {
		return
	}
	rec, err := c.capability.Get(ctx)
	if err == nil {
		c.onCapChanged(rec)
	}
}

// SetForeground marks the host app as foreground, permitting new queries
// (spec.md §5).
func (c *Client) SetForeground() { c.dispatcher.Lifecycle.SetForeground() }

// SetBackground marks the host app as background; in-flight queries run to
// completion but no new Execute call is admitted until SetForeground
// (spec.md §5).
func (c *Client) SetBackground() { c.dispatcher.Lifecycle.SetBackground() }
