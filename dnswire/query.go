// Package dnswire builds TXT queries and validates/parses TXT responses
// using github.com/miekg/dns, the same library the teacher's
// internal/protocol/dns_conn.go uses for its poll/data queries. Transaction
// IDs are drawn from a CSPRNG per spec.md §4.2/§9 — never from math/rand.
package dnswire

import (
	"crypto/rand"
	"encoding/binary"
	"strings"

	"github.com/miekg/dns"

	"dnschat/chaterr"
	"dnschat/label"
)

// MaxUDPPayload is the EDNS0 UDP size hint, matching the teacher's
// sendPoll/startTxEngine opt.SetUDPSize(1232) call.
const MaxUDPPayload = 1232

// Query is an encoded DNS TXT query together with the metadata needed to
// validate its response.
type Query struct {
	ID    uint16
	Name  string // fully-qualified, dns.Fqdn-normalized
	Bytes []byte
}

// newTransactionID draws a 16-bit transaction ID from a cryptographically
// secure source. A weak PRNG (math/rand, time-seeded) is forbidden by
// spec.md §9 because it has been the source of collision bugs in related
// systems.
func newTransactionID() (uint16, error) {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, chaterr.Wrap(chaterr.NetworkUnavailable, "failed to read CSPRNG", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

// BuildQuery constructs a standard TXT query for fqdn: 12-byte header with a
// CSPRNG transaction ID, flags 0x0100 (RD=1), one question, EDNS0 OPT
// advertising a 1232-byte UDP payload so resolvers don't gratuitously
// truncate multi-part TXT answers.
func BuildQuery(fqdn label.Fqdn) (*Query, error) {
	id, err := newTransactionID()
	if err != nil {
		return nil, err
	}

	name := dns.Fqdn(string(fqdn))

	msg := new(dns.Msg)
	msg.Id = id
	msg.RecursionDesired = true
	msg.Question = []dns.Question{{Name: name, Qtype: dns.TypeTXT, Qclass: dns.ClassINET}}

	opt := &dns.OPT{Hdr: dns.RR_Header{Name: ".", Rrtype: dns.TypeOPT}}
	opt.SetUDPSize(MaxUDPPayload)
	msg.Extra = append(msg.Extra, opt)

	buf, err := msg.Pack()
	if err != nil {
		return nil, chaterr.Wrap(chaterr.InvalidResponse, "failed to pack query", err)
	}

	return &Query{ID: id, Name: name, Bytes: buf}, nil
}

// ParseResponse validates the envelope (transaction ID, QR, question echo)
// per spec.md §4.2 and extracts TXT character-strings in answer order. Any
// envelope mismatch is reported as InvalidResponse/Spoofed — a spoofing
// mitigation, not a protocol nicety.
func ParseResponse(q *Query, raw []byte) ([]string, error) {
	if len(raw) < 12 {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "response shorter than DNS header", nil)
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "failed to unpack response", err)
	}

	if msg.Id != q.ID {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "transaction ID mismatch", nil)
	}
	if !msg.Response {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "QR bit not set", nil)
	}
	if len(msg.Question) != 1 {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "question count is not 1", nil)
	}

	q0 := msg.Question[0]
	if !strings.EqualFold(q0.Name, q.Name) {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "echoed question name mismatch", nil)
	}
	if q0.Qtype != dns.TypeTXT || q0.Qclass != dns.ClassINET {
		return nil, chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindSpoofed, "echoed question type/class mismatch", nil)
	}

	var segments []string
	for _, ans := range msg.Answer {
		txt, ok := ans.(*dns.TXT)
		if !ok {
			continue
		}
		segments = append(segments, txt.Txt...)
	}

	return segments, nil
}
