// Package slug turns display names into URL path segments.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxLength = 80

// Fallback is used when a name has no usable characters
const Fallback = "tilepack"

// Make lowercases name, folds accented letters to their base letter and
// joins the remaining letter and digit runs with single hyphens.
func Make(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			pendingHyphen = b.Len() > 0
			continue
		}
		need := 1
		if pendingHyphen {
			need++
		}
		if b.Len()+need > maxLength {
			break
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}

	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}
