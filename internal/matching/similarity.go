package matching

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// SimilarityRatio returns a 0-100 percentage of how alike two strings
// are, case-insensitively. Containment counts as a full match, which
// handles bank descriptions that wrap a merchant name in branch codes
// ("TESCO STORES 2847"). Otherwise the score falls back to an
// edit-distance ratio. An empty string never matches anything.
func SimilarityRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 100
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return (1 - float64(distance)/float64(longest)) * 100
}
