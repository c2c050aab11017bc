package shared

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes free text for fuzzy comparison.
//
// The input is NFD-decomposed, combining marks are dropped, the result is lowercased and
// every rune outside [a-z0-9] and whitespace is removed. Whitespace is kept as-is so
// "Clocks (Live)" becomes "clocks live". Normalize never fails; it may return "".
func Normalize(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchesLoosely reports whether a and b, after [Normalize], contain one another.
//
// Empty normalized strings never match.
func MatchesLoosely(a, b string) bool {
	na := collapseSpaces(Normalize(a))
	nb := collapseSpaces(Normalize(b))
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
