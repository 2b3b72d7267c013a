// Package similarity scores how closely a spoken transcript matches a
// reference sentence.
package similarity

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Score returns a case-insensitive similarity percentage in [0, 100] derived
// from the Levenshtein edit distance between a and b, rounded to two
// decimals. Two empty strings score 100.
func Score(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 100
	}

	d := matchr.Levenshtein(a, b)
	pct := float64(maxLen-d) / float64(maxLen) * 100
	pct = math.Round(pct*100) / 100
	return min(max(pct, 0), 100)
}

// StripTrailingPeriod trims surrounding spaces from s and removes exactly one
// trailing '.', if present. Transcription engines habitually terminate
// sentences with a period that the reference text usually lacks.
func StripTrailingPeriod(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".")
}
