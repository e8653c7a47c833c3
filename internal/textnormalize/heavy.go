package textnormalize

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/unicode/norm"
)

// Heavy normalizes a document title (or a typed query prefix) for trigram
// matching:
// - Unicode NFKC
// - transliteration to ASCII (best-effort)
// - lowercase
// - punctuation collapse to spaces
// - whitespace collapse
//
// Stored titles and incoming queries must pass through the same function or
// similarity scores drift.
func Heavy(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = unidecode.Unidecode(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))

	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return ""
	}
	return strings.Join(strings.Fields(out), " ")
}
