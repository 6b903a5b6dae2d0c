package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxTokenLength = 48

// stripMarks folds accented letters onto their base letter ("João" -> "Joao").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeToken converts value to a lowercase token of ASCII letters, digits,
// and hyphens. Runs of other characters collapse to one hyphen. The result
// is capped at 48 characters and is empty when nothing usable remains.
func SanitizeToken(value string) string {
	folded, _, err := transform.String(stripMarks, strings.TrimSpace(value))
	if err != nil {
		folded = value
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				if b.Len()+2 > maxTokenLength {
					break
				}
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			if b.Len() >= maxTokenLength {
				break
			}
			continue
		}
		pendingDash = true
	}
	return strings.TrimRight(b.String(), "-")
}
