package transport

import (
	"testing"

	"github.com/miekg/dns"
)

// buildTCPOKReply parses the raw query bytes qbuf and builds a valid
// single-segment TXT reply echoing its question, for use by fake TCP/UDP
// servers in tests.
func buildTCPOKReply(t *testing.T, qbuf []byte) []byte {
	t.Helper()
	q := new(dns.Msg)
	if err := q.Unpack(qbuf); err != nil {
		t.Fatalf("Unpack query error: %v", err)
	}
	reply := new(dns.Msg)
	reply.SetReply(q)
	reply.Answer = append(reply.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: q.Question[0].Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
		Txt: []string{"ok"},
	})
	buf, err := reply.Pack()
	if err != nil {
		t.Fatalf("Pack reply error: %v", err)
	}
	return buf
}
