package command

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims, upper-cases and collapses a raw transcript to a single
// line. Full-width and compatibility characters are folded first so that
// "ＮＥＸＴ" and "NEXT" normalize to the same command text.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	folded := norm.NFKC.String(raw)
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}
