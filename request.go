package dnschat

import (
	"dnschat/dispatch"
	"dnschat/transport"
)

// Request is one chat prompt submitted to the core, spec.md §6's
// execute(text, options) input flattened into a single value.
type Request struct {
	// ConversationID groups related exchanges for a host's own bookkeeping;
	// the core does not interpret it.
	ConversationID string
	// Text is the plaintext chat prompt, sanitized into a label internally.
	Text string
	// Zone overrides the configured default zone (e.g. "ch.at") if non-empty.
	Zone string
	// Server overrides the configured default server if non-empty; must be
	// in the configured allow-list or execute fails with ServerUnreachable.
	Server string
	// Preference overrides the configured transport fallback order if
	// non-empty.
	Preference []transport.Kind
}

func (r Request) toDispatch() dispatch.Request {
	return dispatch.Request{
		ConversationID: r.ConversationID,
		Text:           r.Text,
		Zone:           r.Zone,
		Server:         r.Server,
		Preference:     r.Preference,
	}
}
