package game

import "testing"

func TestSimilarity(t *testing.T) {
	tests := []struct {
		guess, target string
		min, max      float64
	}{
		{"hello", "hello", 1, 1},
		{"  HeLLo ", "hello", 1, 1},
		{"hello", "help", 0.01, 0.99},
		{"abc", "xyz", 0, 0.19},
		{"", "word", 0, 0},
		{"word", "   ", 0, 0},
		{"", "", 1, 1},
		{"banan", "banana", 0.8, 0.9},
	}

	for _, tt := range tests {
		got := Similarity(tt.guess, tt.target)
		if got < tt.min || got > tt.max {
			t.Errorf("Similarity(%q, %q) = %v, want in [%v, %v]", tt.guess, tt.target, got, tt.min, tt.max)
		}
	}
}

func TestSimilarityExactValue(t *testing.T) {
	// hello -> help is two edits over five runes.
	if got := Similarity("hello", "help"); got != 0.6 {
		t.Errorf("Similarity(hello, help) = %v, want 0.6", got)
	}
}

func TestIsMatchThreshold(t *testing.T) {
	if !IsMatch(SolveThreshold) {
		t.Error("score equal to the threshold should match")
	}
	if IsMatch(SolveThreshold - 0.01) {
		t.Error("score below the threshold should not match")
	}
	if !IsMatch(Similarity("bananna", "banana")) {
		t.Error("one typo in a long word should still match")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"über", "uber", 1},
	}
	for _, tt := range tests {
		if got := levenshtein([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
