package game

import (
	"strings"
	"time"
	"unicode/utf8"

	"wordplay/store"
)

// ActiveTarget is the newest text message that is neither solved nor struck
// out. Returns nil when nothing is left to solve.
func ActiveTarget(messages []*store.Message) *store.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if isEligible(messages[i]) {
			return messages[i]
		}
	}
	return nil
}

// RemainingTargets counts messages still eligible for solving.
func RemainingTargets(messages []*store.Message) int {
	n := 0
	for _, m := range messages {
		if isEligible(m) {
			n++
		}
	}
	return n
}

func isEligible(m *store.Message) bool {
	return m.Type == MessageTypeText && !m.IsSolved && m.Strikes < MaxStrikes
}

// TextMessageCount counts messages that count toward max_messages.
func TextMessageCount(messages []*store.Message) int {
	n := 0
	for _, m := range messages {
		if m.Type == MessageTypeText {
			n++
		}
	}
	return n
}

// ProposalDeadline is when an open solve proposal finalizes on its own.
func ProposalDeadline(g *store.Game) *time.Time {
	if g.SolvingProposalCreatedAt == nil {
		return nil
	}
	t := g.SolvingProposalCreatedAt.Add(ProposalWindow)
	return &t
}

// ProposalExpired reports whether the deny window has closed.
func ProposalExpired(g *store.Game, now time.Time) bool {
	deadline := ProposalDeadline(g)
	return deadline != nil && !now.Before(*deadline)
}

// FreeForAllAt is when the current target opens to every player.
func FreeForAllAt(g *store.Game) *time.Time {
	if g.SolvingStartedAt == nil {
		return nil
	}
	t := g.SolvingStartedAt.Add(SolvingModeDuration)
	return &t
}

// IsFreeForAll reports whether anyone may attempt the target: the author's
// window has run out, or the author left the game.
func IsFreeForAll(g *store.Game, author *store.GamePlayer, now time.Time) bool {
	if author == nil || author.HasLeft {
		return true
	}
	return g.SolvingStartedAt != nil && now.Sub(*g.SolvingStartedAt) > SolvingModeDuration
}

// CanAttempt reports whether userID may guess or take a hint on target.
func CanAttempt(g *store.Game, target *store.Message, author *store.GamePlayer, userID string, now time.Time) bool {
	return target.UserID == userID || IsFreeForAll(g, author, now)
}

// ConfirmationsComplete reports whether every active player confirmed.
func ConfirmationsComplete(confirmations []string, active []string) bool {
	if len(active) == 0 {
		return false
	}
	seen := make(map[string]bool, len(confirmations))
	for _, id := range confirmations {
		seen[id] = true
	}
	for _, id := range active {
		if !seen[id] {
			return false
		}
	}
	return true
}

// ValidateContent sanitizes a message and checks it is 1 to 3 words and at
// most 25 characters. Returns the cleaned content.
func ValidateContent(raw string) (string, error) {
	words := strings.Fields(SanitizeContent(raw))
	if len(words) == 0 {
		return "", ErrEmptyContent
	}
	if len(words) > MaxWords {
		return "", ErrTooManyWords
	}
	content := strings.Join(words, " ")
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", ErrContentTooLong
	}
	return content, nil
}

// FindDuplicate returns the text message with the same content, ignoring
// case, if any.
func FindDuplicate(messages []*store.Message, content string) *store.Message {
	for _, m := range messages {
		if m.Type == MessageTypeText && strings.EqualFold(m.Content, content) {
			return m
		}
	}
	return nil
}

// ActivePlayerIDs lists the ids of players who have not left, keeping join
// order.
func ActivePlayerIDs(players []*store.GamePlayer) []string {
	ids := make([]string, 0, len(players))
	for _, p := range players {
		if !p.HasLeft {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}
