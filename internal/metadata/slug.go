package metadata

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// foldCaser lowercases without language-specific rules.
var foldCaser = cases.Lower(language.Und)

// Slug converts free text to an identifier-safe token.
// The text is lowercased and each run of characters outside [a-z0-9]
// becomes a single hyphen. Non-ASCII letters are not transliterated, so
// "Café" becomes "caf".
func Slug(s string) string {
	folded := foldCaser.String(s)

	var sb strings.Builder
	sb.Grow(len(folded))
	pendingHyphen := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingHyphen = false
			sb.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return sb.String()
}
