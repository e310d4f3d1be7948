package dnswire

import (
	"testing"

	"github.com/miekg/dns"

	"dnschat/chaterr"
	"dnschat/label"
)

func mustFqdn(t *testing.T, input, zone string) label.Fqdn {
	t.Helper()
	l, err := label.Sanitize(input)
	if err != nil {
		t.Fatalf("Sanitize error: %v", err)
	}
	f, err := label.ComposeFqdn(l, zone)
	if err != nil {
		t.Fatalf("ComposeFqdn error: %v", err)
	}
	return f
}

func TestBuildQueryRoundTrip(t *testing.T) {
	fqdn := mustFqdn(t, "Hello Swift DNS", "ch.at")
	q, err := BuildQuery(fqdn)
	if err != nil {
		t.Fatalf("BuildQuery error: %v", err)
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(q.Bytes); err != nil {
		t.Fatalf("Unpack error: %v", err)
	}
	if msg.Id != q.ID {
		t.Fatalf("packed ID %d != query ID %d", msg.Id, q.ID)
	}
	if len(msg.Question) != 1 || msg.Question[0].Name != dns.Fqdn("hello-swift-dns.ch.at") {
		t.Fatalf("unexpected question: %+v", msg.Question)
	}
	if msg.Question[0].Qtype != dns.TypeTXT {
		t.Fatalf("expected TXT qtype, got %d", msg.Question[0].Qtype)
	}
}

func buildReply(q *Query, txt ...string) []byte {
	reply := new(dns.Msg)
	reply.Id = q.ID
	reply.Response = true
	reply.Question = []dns.Question{{Name: q.Name, Qtype: dns.TypeTXT, Qclass: dns.ClassINET}}
	reply.Answer = append(reply.Answer, &dns.TXT{
		Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
		Txt: txt,
	})
	buf, _ := reply.Pack()
	return buf
}

func TestParseResponseHappyPath(t *testing.T) {
	fqdn := mustFqdn(t, "Hello Swift DNS", "ch.at")
	q, err := BuildQuery(fqdn)
	if err != nil {
		t.Fatalf("BuildQuery error: %v", err)
	}
	raw := buildReply(q, "1/2:Hello ", "2/2:World!")

	segs, err := ParseResponse(q, raw)
	if err != nil {
		t.Fatalf("ParseResponse error: %v", err)
	}
	if len(segs) != 2 || segs[0] != "1/2:Hello " || segs[1] != "2/2:World!" {
		t.Fatalf("unexpected segments: %#v", segs)
	}
}

func TestParseResponseRejectsTransactionIDMismatch(t *testing.T) {
	fqdn := mustFqdn(t, "hello", "ch.at")
	q, _ := BuildQuery(fqdn)
	raw := buildReply(q, "ok")

	other, _ := BuildQuery(fqdn)
	_, err := ParseResponse(other, raw)
	if kind, ok := chaterr.KindOf(err); !ok || kind != chaterr.InvalidResponse {
		t.Fatalf("expected InvalidResponse, got %v", err)
	}
}

func TestParseResponseRejectsQuestionMismatch(t *testing.T) {
	fqdn := mustFqdn(t, "hello", "ch.at")
	q, _ := BuildQuery(fqdn)

	reply := new(dns.Msg)
	reply.Id = q.ID
	reply.Response = true
	reply.Question = []dns.Question{{Name: dns.Fqdn("other.ch.at"), Qtype: dns.TypeTXT, Qclass: dns.ClassINET}}
	buf, _ := reply.Pack()

	_, err := ParseResponse(q, buf)
	if kind, ok := chaterr.KindOf(err); !ok || kind != chaterr.InvalidResponse {
		t.Fatalf("expected InvalidResponse, got %v", err)
	}
}

func TestParseResponseTooShort(t *testing.T) {
	fqdn := mustFqdn(t, "hello", "ch.at")
	q, _ := BuildQuery(fqdn)
	_, err := ParseResponse(q, []byte{0x01, 0x02})
	if kind, ok := chaterr.KindOf(err); !ok || kind != chaterr.InvalidResponse {
		t.Fatalf("expected InvalidResponse, got %v", err)
	}
}
