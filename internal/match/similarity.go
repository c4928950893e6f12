package match

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// NormalizeDescription canonicalizes a transaction description for comparison:
// uppercase, hyphens and underscores become spaces, the punctuation banks
// commonly inject (periods, commas, asterisks, hashes) is stripped, and runs
// of whitespace collapse to single spaces.
func NormalizeDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch r {
		case '-', '_':
			b.WriteRune(' ')
		case '.', ',', '*', '#':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DescriptionSimilarity scores how alike two descriptions are, in [0, 1].
// Equal normalized strings score 1; when one contains the other the score is
// the ratio of their lengths; otherwise it falls back to Levenshtein edit
// distance over the normalized strings.
func DescriptionSimilarity(a, b string) float64 {
	na := NormalizeDescription(a)
	nb := NormalizeDescription(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	lenA := len([]rune(na))
	lenB := len([]rune(nb))
	shorter, longer := lenA, lenB
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return float64(shorter) / float64(longer)
	}

	distance := levenshtein.ComputeDistance(na, nb)
	similarity := 1 - float64(distance)/float64(longer)
	if similarity < 0 {
		return 0
	}
	return similarity
}
