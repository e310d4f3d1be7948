// Package chatconfig collects the literal defaults spec.md §6 specifies into
// one Config value that the dispatcher and client read, the way spec.md §4.6
// demands for the rate-limit constant specifically. The size caps are also
// declared as constants in the packages that enforce them (label, transport),
// and those constants are what those packages use.
package chatconfig

import (
	"time"

	"dnschat/transport"
)

// Config is the set of tunables a host may override; DefaultConfig returns
// spec.md §6's literal defaults untouched. MaxInputLen, MaxLabelLen and
// MaxTCPResponseLen are not read by any other package: label.MaxInputLen,
// label.MaxLabelLen and transport.MaxTCPResponseBytes (65535) are enforced
// instead, so overriding these three fields changes nothing.
type Config struct {
	Zone               string
	DefaultServer      string
	DoHEndpoint        string
	DoHDisabledZones   map[string]bool
	AllowedServers     map[string]bool
	Preference         []transport.Kind
	QueryTimeout       time.Duration
	MaxRetries         int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	RateLimitWindow    time.Duration
	RateLimitCapacity  int
	MaxInputLen        int
	MaxLabelLen        int
	MaxTCPResponseLen  int
}

// DefaultConfig returns spec.md §6's defaults: zone ch.at, DoH disabled for
// it by policy, the fixed allowed-server list, 10s/3-retry/200ms-backoff
// timing, and the 60-per-60s rate limit.
func DefaultConfig() Config {
	return Config{
		Zone:          "ch.at",
		DefaultServer: "ch.at",
		DoHEndpoint:   "https://dns.google/dns-query",
		DoHDisabledZones: map[string]bool{
			"ch.at": true,
		},
		AllowedServers: map[string]bool{
			"ch.at":          true,
			"llm.pieter.com": true,
			"8.8.8.8":        true,
			"8.8.4.4":        true,
			"1.1.1.1":        true,
			"1.0.0.1":        true,
		},
		Preference:        []transport.Kind{transport.KindNative, transport.KindUDP, transport.KindTCP, transport.KindHTTPS},
		QueryTimeout:      10 * time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    200 * time.Millisecond,
		RetryMaxDelay:     2 * time.Second,
		RateLimitWindow:   60 * time.Second,
		RateLimitCapacity: 60,
		MaxInputLen:       120,
		MaxLabelLen:       63,
		MaxTCPResponseLen: 65536,
	}
}

// ServerAllowed reports whether server is in the configured allow-list;
// the dispatcher refuses queries to any other server at its boundary
// (spec.md §6).
func (c Config) ServerAllowed(server string) bool {
	return c.AllowedServers[server]
}

// DoHEnabledForZone reports whether DoH may be used for zone; spec.md §4.4
// disables DoH for zones whose TXT answers aren't available via public
// resolvers, ch.at by default.
func (c Config) DoHEnabledForZone(zone string) bool {
	return !c.DoHDisabledZones[zone]
}
