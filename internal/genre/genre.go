// Package genre maps emotions to provider genre seeds.
package genre

import (
	"strings"

	"github.com/justestif/go-mood-recommender/internal/emotion"
)

// FallbackCount is how many available genres are offered when none of an
// emotion's preferred genres are available.
const FallbackCount = 5

// DefaultGenres is used when the provider vocabulary is unavailable.
var DefaultGenres = []string{"pop", "rock", "jazz", "classical", "electronic", "hip-hop"}

// preferred lists each emotion's genres, most fitting first.
var preferred = map[emotion.Label][]string{
	emotion.Happy:     {"pop", "dance", "funk", "disco", "soul", "gospel", "latin", "reggae"},
	emotion.Sad:       {"blues", "folk", "country", "acoustic", "singer-songwriter", "indie-folk"},
	emotion.Angry:     {"rock", "metal", "punk", "hardcore", "alternative", "grunge"},
	emotion.Surprised: {"electronic", "jazz", "funk", "experimental", "world-music"},
	emotion.Neutral:   {"pop", "indie", "alternative", "rock", "folk"},
	emotion.Fearful:   {"ambient", "classical", "new-age", "chill", "downtempo"},
	emotion.Disgusted: {"grunge", "alternative", "punk", "industrial", "metal"},
}

// Preferred returns the preferred genres for an emotion label, matched
// case-insensitively. Unknown labels have none.
func Preferred(label string) []string {
	l, _ := emotion.ParseLabel(label)
	return preferred[l]
}

// Candidates returns the genres Select chooses from: the emotion's preferred
// genres that are available, else the first FallbackCount available genres.
// An empty available list is treated as DefaultGenres.
func Candidates(label string, available []string) []string {
	if len(available) == 0 {
		available = DefaultGenres
	}

	set := make(map[string]struct{}, len(available))
	for _, g := range available {
		set[strings.ToLower(g)] = struct{}{}
	}

	var matches []string
	for _, g := range Preferred(label) {
		if _, ok := set[g]; ok {
			matches = append(matches, g)
		}
	}
	if len(matches) > 0 {
		return matches
	}
	return available[:min(FallbackCount, len(available))]
}

// Select picks a genre for the emotion uniformly at random from Candidates.
// Repeated calls for the same emotion are expected to vary.
func Select(label string, available []string, r emotion.Rand) string {
	if r == nil {
		r = emotion.DefaultRand
	}
	c := Candidates(label, available)
	return c[r.IntN(len(c))]
}
