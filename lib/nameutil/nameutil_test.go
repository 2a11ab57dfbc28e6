package nameutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Bulbasaur":     "bulbasaur",
		"Nidoran♀":      "nidoran-f",
		"Nidoran♂":      "nidoran-m",
		"Mr. Mime":      "mr-mime",
		"Farfetch'd":    "farfetchd",
		"Flabébé":       "flabebe",
		"Alolan Raichu": "raichu",
		"Type: Null":    "type-null",
		"Ho-Oh":         "ho-oh",
	}
	for name, want := range cases {
		require.Equal(t, want, Slugify(name), "slug of %q", name)
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []string{"pikachu", "raichu", "pichu"}

	match, score := BestMatch("Pikachu", candidates)
	require.Equal(t, "pikachu", match)
	require.InDelta(t, 1.0, score, 0.001)

	match, _ = BestMatch("rajchu", candidates)
	require.Equal(t, "raichu", match)

	match, score = BestMatch("anything", nil)
	require.Empty(t, match)
	require.Zero(t, score)
}
