package game

import "strings"

// SolveThreshold is the minimum similarity for a guess to count as a solve.
const SolveThreshold = 0.80

// Similarity compares a guess against a target, ignoring case and
// surrounding whitespace. Returns a value in [0, 1].
func Similarity(guess, target string) float64 {
	a := normalize(guess)
	b := normalize(target)

	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}

	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// IsMatch reports whether a similarity score is enough to solve a message.
func IsMatch(score float64) bool {
	return score >= SolveThreshold
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// levenshtein keeps two rows of the classic edit-distance table.
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
