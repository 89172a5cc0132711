package game

import (
	"errors"
	"testing"
	"time"

	"wordplay/store"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr error
	}{
		{"hello", "hello", nil},
		{"  hello   big  world ", "hello big world", nil},
		{"<b>bold</b> move", "bold move", nil},
		{"salt & pepper", "salt & pepper", nil},
		{"", "", ErrEmptyContent},
		{"<script>x</script>", "", ErrEmptyContent},
		{"one two three four", "", ErrTooManyWords},
		{"abcdefghijklmnopqrstuvwxyz", "", ErrContentTooLong},
	}

	for _, tt := range tests {
		got, err := ValidateContent(tt.raw)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ValidateContent(%q) error = %v, want %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateContent(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestActiveTargetIsNewestEligible(t *testing.T) {
	messages := []*store.Message{
		{ID: "m1", Type: MessageTypeText},
		{ID: "m2", Type: MessageTypeText},
		{ID: "m3", Type: MessageTypeText, IsSolved: true},
		{ID: "m4", Type: MessageTypeSystem, IsSolved: true},
	}

	if got := ActiveTarget(messages); got == nil || got.ID != "m2" {
		t.Fatalf("ActiveTarget = %v, want m2", got)
	}
	if n := RemainingTargets(messages); n != 2 {
		t.Errorf("RemainingTargets = %d, want 2", n)
	}

	messages[1].Strikes = MaxStrikes
	if got := ActiveTarget(messages); got == nil || got.ID != "m1" {
		t.Fatalf("ActiveTarget after strike out = %v, want m1", got)
	}

	messages[0].IsSolved = true
	if got := ActiveTarget(messages); got != nil {
		t.Errorf("ActiveTarget = %v, want nil", got.ID)
	}
}

func TestIsFreeForAll(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := &store.Game{SolvingStartedAt: &start}
	author := &store.GamePlayer{UserID: "u1"}

	if IsFreeForAll(g, author, start.Add(SolvingModeDuration)) {
		t.Error("free-for-all should start only after the window has fully passed")
	}
	if !IsFreeForAll(g, author, start.Add(SolvingModeDuration+time.Millisecond)) {
		t.Error("free-for-all should be open after the window")
	}
	if !IsFreeForAll(g, &store.GamePlayer{UserID: "u1", HasLeft: true}, start) {
		t.Error("a departed author should open the target immediately")
	}

	target := &store.Message{UserID: "u1"}
	if !CanAttempt(g, target, author, "u1", start) {
		t.Error("author should always be allowed")
	}
	if CanAttempt(g, target, author, "u2", start.Add(time.Second)) {
		t.Error("non-author should wait for free-for-all")
	}
}

func TestProposalExpired(t *testing.T) {
	opened := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	g := &store.Game{SolvingProposalCreatedAt: &opened}

	if ProposalExpired(g, opened.Add(ProposalWindow-time.Millisecond)) {
		t.Error("proposal expired before its deadline")
	}
	if !ProposalExpired(g, opened.Add(ProposalWindow)) {
		t.Error("proposal should expire at its deadline")
	}
	if ProposalExpired(&store.Game{}, opened) {
		t.Error("no proposal cannot expire")
	}
}

func TestConfirmationsComplete(t *testing.T) {
	active := []string{"u1", "u2", "u3"}
	if ConfirmationsComplete([]string{"u1", "u2"}, active) {
		t.Error("two of three should not be complete")
	}
	if !ConfirmationsComplete([]string{"u3", "u1", "u2", "u9"}, active) {
		t.Error("all active players confirmed")
	}
	if ConfirmationsComplete(nil, nil) {
		t.Error("no players cannot confirm")
	}
}

func TestFindDuplicateIgnoresCase(t *testing.T) {
	messages := []*store.Message{
		{ID: "m1", Type: MessageTypeText, Content: "Apple"},
		{ID: "m2", Type: MessageTypeSystem, Content: "left the game"},
	}
	if got := FindDuplicate(messages, "apple"); got == nil || got.ID != "m1" {
		t.Errorf("FindDuplicate(apple) = %v, want m1", got)
	}
	if got := FindDuplicate(messages, "left the game"); got != nil {
		t.Errorf("system messages should not count as duplicates")
	}
}
