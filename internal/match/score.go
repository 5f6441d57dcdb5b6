package match

import "strings"

// ScoreFunc rates a freshly generated track for future tie-breaking. Scores
// live on [0, 1]; the matcher prefers higher scores and resolves ties by
// age. The function is injectable because no single heuristic fits every
// catalogue.
type ScoreFunc func(title string, tags []string) float64

// DefaultScore is a cheap metadata heuristic: tracks with substantial
// titles and rich tag sets tend to be the keepers of a generation batch.
func DefaultScore(title string, tags []string) float64 {
	score := 0.5
	if len(title) > 10 {
		score += 0.2
	}
	lower := strings.ToLower(title)
	for _, word := range []string{"music", "song", "track", "beat"} {
		if strings.Contains(lower, word) {
			score += 0.1
			break
		}
	}
	if len(tags) > 3 {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
