package game

import (
	"math/rand/v2"
	"unicode"
)

// MaxHintLevel is the last hint tier. Tier 3 adds a text clue on top of the
// tier 2 reveal.
const MaxHintLevel = 3

const cipherAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*?+=<>~^"

// revealFraction of the non-space characters is shown at tier 2, counting
// the first character.
const (
	revealNumerator   = 2
	revealDenominator = 5
)

// GenerateCipher renders content with every non-space character obscured
// except the ones the hint level reveals. Output has the same rune length as
// content and keeps spaces in place.
func GenerateCipher(content string, hintLevel int) string {
	return AdvanceCipher(content, "", hintLevel)
}

// AdvanceCipher renders content for hintLevel while keeping every position
// already revealed in previous. Only obscured positions are re-rolled.
func AdvanceCipher(content, previous string, hintLevel int) string {
	src := []rune(content)
	prev := []rune(previous)
	if len(prev) != len(src) {
		prev = nil
	}

	revealed := make([]bool, len(src))
	var hidden []int
	first := -1
	count := 0
	for i, r := range src {
		if unicode.IsSpace(r) {
			continue
		}
		if first < 0 {
			first = i
		}
		if prev != nil && prev[i] == r {
			revealed[i] = true
			count++
			continue
		}
		hidden = append(hidden, i)
	}

	want := RevealedCount(content, hintLevel)
	if want > 0 && first >= 0 && !revealed[first] {
		revealed[first] = true
		count++
		hidden = remove(hidden, first)
	}

	if count < want {
		rand.Shuffle(len(hidden), func(i, j int) {
			hidden[i], hidden[j] = hidden[j], hidden[i]
		})
		for _, idx := range hidden[:want-count] {
			revealed[idx] = true
		}
	}

	out := make([]rune, len(src))
	for i, r := range src {
		switch {
		case unicode.IsSpace(r):
			out[i] = r
		case revealed[i]:
			out[i] = r
		default:
			out[i] = obscure(r)
		}
	}
	return string(out)
}

// RevealedCount is the number of non-space characters guaranteed visible at
// hintLevel.
func RevealedCount(content string, hintLevel int) int {
	n := 0
	for _, r := range content {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	if n == 0 || hintLevel <= 0 {
		return 0
	}
	if hintLevel == 1 {
		return 1
	}
	return max(1, n*revealNumerator/revealDenominator)
}

func obscure(original rune) rune {
	for {
		c := rune(cipherAlphabet[rand.IntN(len(cipherAlphabet))])
		if c != original {
			return c
		}
	}
}

func remove(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
