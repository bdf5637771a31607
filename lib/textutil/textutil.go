package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a label and strips all whitespace so labels like
// "First  In" and "FIRST IN" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// Closest returns the candidate most similar to target by Jaro-Winkler
// similarity on normalized names, along with that similarity. It returns
// an empty string and 0 when there are no candidates.
func Closest(target string, candidates []string) (string, float64) {
	normalizedTarget := NormalizeName(target)

	var best string
	var bestSimilarity float64
	for _, c := range candidates {
		similarity := matchr.JaroWinkler(normalizedTarget, NormalizeName(c), false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = c
		}
	}
	return best, bestSimilarity
}
