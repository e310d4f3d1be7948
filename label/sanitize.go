// Package label implements the sanitizer and FQDN composer shared across
// every transport: raw chat text in, a DNS-safe Label and Fqdn out. The
// pipeline in Sanitize is the single source of truth spec.md §4.1/§9 asks
// every implementation touching labels to share byte-for-byte.
package label

import (
	"strings"
	"unicode"

	"dnschat/chaterr"
)

const (
	// MaxInputLen is the pre-sanitization hard cap on raw input length.
	MaxInputLen = 120
	// MaxLabelLen is the DNS label byte limit.
	MaxLabelLen = 63
	// MaxFqdnLen is the encoded FQDN byte limit (RFC 1035 §3.1).
	MaxFqdnLen = 253
)

// Label is a sanitized DNS label: bytes over [a-z0-9-], length 1..63, never
// starting or ending with '-', never containing "--".
type Label string

// Fqdn is a fully qualified query name: a Label followed by zone labels.
type Fqdn string

// asciiFold maps common Latin-1/Latin-Extended-A accented runes to their
// unaccented ASCII base letter. There is no Unicode normalization library in
// the retrieval pack (see DESIGN.md); this table covers the accents the
// chat surface actually sees and keeps the pipeline stdlib-only.
var asciiFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a', 'ā': 'a',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e', 'ē': 'e', 'ė': 'e', 'ę': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i', 'ī': 'i',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o', 'ø': 'o', 'ō': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u', 'ū': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ñ': 'n', 'ń': 'n',
	'ç': 'c', 'ć': 'c', 'č': 'c',
	'ß': 's', 'ś': 's', 'š': 's',
	'ž': 'z', 'ź': 'z', 'ż': 'z',
	'ł': 'l',
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O', 'Ø': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'Ý': 'Y',
	'Ñ': 'N',
	'Ç': 'C',
}

// foldASCII strips combining-mark accents from s by substituting each known
// accented rune with its unaccented base letter, leaving unknown runes
// untouched (they are dropped later by the [a-z0-9-] filter).
func foldASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if base, ok := asciiFold[r]; ok {
			b.WriteRune(base)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Sanitize runs the strict 8-step pipeline from spec.md §4.1:
// unicode-fold to ASCII, lowercase, trim, collapse whitespace to '-', drop
// disallowed bytes, collapse '-' runs, strip edge '-', check length.
func Sanitize(input string) (Label, error) {
	if len(input) > MaxInputLen {
		return "", chaterr.New(chaterr.InputTooLong, "raw input exceeds 120 bytes")
	}

	folded := foldASCII(input)

	lowered := strings.ToLower(folded)
	trimmed := strings.TrimSpace(lowered)

	var collapsedWS strings.Builder
	inRun := false
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			if !inRun {
				collapsedWS.WriteByte('-')
				inRun = true
			}
			continue
		}
		inRun = false
		collapsedWS.WriteRune(r)
	}

	var kept strings.Builder
	for _, r := range collapsedWS.String() {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			kept.WriteRune(r)
		}
	}

	var collapsedDash strings.Builder
	dashRun := false
	for _, r := range kept.String() {
		if r == '-' {
			if dashRun {
				continue
			}
			dashRun = true
		} else {
			dashRun = false
		}
		collapsedDash.WriteRune(r)
	}

	result := strings.Trim(collapsedDash.String(), "-")

	if result == "" {
		return "", chaterr.New(chaterr.LabelEmpty, "sanitized label is empty")
	}
	if len(result) > MaxLabelLen {
		return "", chaterr.New(chaterr.LabelTooLong, "sanitized label exceeds 63 bytes")
	}
	return Label(result), nil
}

// DebugSanitizeLabel exposes Sanitize for cross-implementation validation;
// spec.md §4.1/§9 requires a debug hook so integration tests can confirm a
// native implementation matches this reference byte-for-byte.
func DebugSanitizeLabel(input string) (Label, error) {
	return Sanitize(input)
}

// ComposeFqdn appends zone labels to a sanitized label, validating each zone
// label independently (1..63 bytes, [a-z0-9-], no edge dashes) and the total
// encoded length (<=253 bytes).
func ComposeFqdn(l Label, zone string) (Fqdn, error) {
	if l == "" {
		return "", chaterr.New(chaterr.LabelEmpty, "empty label cannot be composed")
	}
	zoneLabels := strings.Split(strings.Trim(zone, "."), ".")
	for _, zl := range zoneLabels {
		if err := validateZoneLabel(zl); err != nil {
			return "", err
		}
	}

	full := string(l) + "." + strings.Join(zoneLabels, ".")

	if encodedLen(full) > MaxFqdnLen {
		return "", chaterr.New(chaterr.LabelTooLong, "composed FQDN exceeds 253 encoded bytes")
	}
	return Fqdn(full), nil
}

func validateZoneLabel(zl string) error {
	if zl == "" || len(zl) > MaxLabelLen {
		return chaterr.New(chaterr.LabelTooLong, "zone label length out of range")
	}
	if zl[0] == '-' || zl[len(zl)-1] == '-' {
		return chaterr.New(chaterr.LabelTooLong, "zone label has leading/trailing hyphen")
	}
	for _, r := range zl {
		if !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-') {
			return chaterr.New(chaterr.LabelTooLong, "zone label contains disallowed byte")
		}
	}
	return nil
}

// encodedLen approximates RFC 1035 wire length: one length byte per label
// plus the bytes of each label plus the terminating zero byte.
func encodedLen(fqdn string) int {
	labels := strings.Split(fqdn, ".")
	total := 1 // terminating zero-length byte
	for _, lab := range labels {
		total += 1 + len(lab)
	}
	return total
}
