package dnschat

import (
	"dnschat/dispatch"
	"dnschat/transport"
)

// Result is the outcome of a successful Execute call, spec.md §6's
// execute() success shape.
type Result struct {
	// RequestID echoes back to the caller so a host that fires overlapping
	// requests can discard a result against a request it has since
	// superseded (spec.md §9's stale-result race).
	RequestID string
	// Reassembled is the final concatenated chat reply.
	Reassembled string
	// Records is the raw ordered TXT segment list the reply was assembled
	// from, exposed for callers that want the wire-level detail.
	Records []string
	// TransportUsed is the transport kind that produced the result.
	TransportUsed transport.Kind
}

func resultFromDispatch(r dispatch.Result) Result {
	return Result{
		RequestID:     r.RequestID,
		Reassembled:   r.Reassembled,
		Records:       r.Records,
		TransportUsed: r.TransportUsed,
	}
}
