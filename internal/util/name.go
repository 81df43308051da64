package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultDisplayName is used when sanitization leaves nothing to show.
const DefaultDisplayName = "Guest"

const maxDisplayNameLen = 64

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeDisplayName strips control characters and diacritics from a
// conferencing display name. Returns DefaultDisplayName when the result
// is empty.
func SanitizeDisplayName(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		b.WriteRune(r)
	}

	out := strings.Join(strings.Fields(b.String()), " ")
	if out == "" {
		return DefaultDisplayName
	}
	if r := []rune(out); len(r) > maxDisplayNameLen {
		out = string(r[:maxDisplayNameLen])
	}
	return out
}
