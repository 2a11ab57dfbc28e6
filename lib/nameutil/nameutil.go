package nameutil

import (
	"strings"

	"github.com/antzucaro/matchr"
)

var slugReplacer = strings.NewReplacer(
	"♀", "-f",
	"♂", "-m",
	":", "",
	"'", "",
	".", "",
	"é", "e",
)

var regionalPrefixes = []string{"alolan ", "galarian ", "hisuian ", "paldean "}

// Slugify normalizes an entity display name into the stable key used by
// the selection store and the public dex urls.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	for _, prefix := range regionalPrefixes {
		slug = strings.ReplaceAll(slug, prefix, "")
	}
	slug = slugReplacer.Replace(slug)
	return strings.ReplaceAll(slug, " ", "-")
}

// BestMatch returns the candidate most similar to the given name along
// with its similarity score in [0, 1]. Returns an empty string when
// there are no candidates.
func BestMatch(name string, candidates []string) (string, float64) {
	best := ""
	bestScore := 0.0
	for _, c := range candidates {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(c), false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}
