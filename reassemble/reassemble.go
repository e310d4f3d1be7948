// Package reassemble combines ordered TXT segments into a single response,
// tolerating duplicate retransmission and detecting conflicting or missing
// parts. It is side-effect free and deterministic: the teacher's
// internal/server/reassembly.go reassembles binary fragments keyed by a
// numeric header; this adapts the same pending/duplicate-tracking shape to
// the spec's textual "n/N:" segment format instead.
package reassemble

import (
	"regexp"
	"strconv"
	"strings"

	"dnschat/chaterr"
)

var numberedPattern = regexp.MustCompile(`^\s*(\d+)/(\d+):(.*)$`)

type numberedSegment struct {
	part    int
	total   int
	content string
}

// Reassemble implements spec.md §4.3's rules exactly: drop empty-after-trim
// segments, classify as numbered or plain, concatenate plain segments when
// no numbered ones exist, otherwise map part number to content and require
// every part 1..total present with no conflicting duplicate.
func Reassemble(segments []string) (string, error) {
	var plain []string
	var numbered []numberedSegment

	for _, raw := range segments {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		if m := numberedPattern.FindStringSubmatch(raw); m != nil {
			part, errP := strconv.Atoi(m[1])
			total, errT := strconv.Atoi(m[2])
			if errP == nil && errT == nil {
				numbered = append(numbered, numberedSegment{part: part, total: total, content: m[3]})
				continue
			}
		}
		plain = append(plain, raw)
	}

	if len(numbered) == 0 {
		if len(plain) == 0 {
			return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindEmptyResponse, "no segments after trim", nil)
		}
		out := strings.Join(plain, "")
		if strings.TrimSpace(out) == "" {
			return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindEmptyResponse, "plain concatenation is empty", nil)
		}
		return out, nil
	}

	expectedTotal := numbered[0].total
	for _, seg := range numbered {
		if seg.total != expectedTotal {
			return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindInconsistentTotal, "numbered segments disagree on total parts", nil)
		}
	}

	byPart := make(map[int]string, expectedTotal)
	for _, seg := range numbered {
		existing, seen := byPart[seg.part]
		if !seen {
			byPart[seg.part] = seg.content
			continue
		}
		if existing != seg.content {
			return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindConflictingPart, "duplicate part number with differing content", nil)
		}
	}

	if expectedTotal <= 0 {
		return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindIncompleteResponse, "totalParts is non-positive", nil)
	}

	var b strings.Builder
	for i := 1; i <= expectedTotal; i++ {
		content, ok := byPart[i]
		if !ok {
			return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindIncompleteResponse, "missing part in sequence", nil)
		}
		b.WriteString(content)
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", chaterr.WithSubkind(chaterr.InvalidResponse, chaterr.SubkindEmptyResponse, "reassembled output is empty", nil)
	}
	return out, nil
}
