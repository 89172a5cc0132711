package game

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wordplay/store"
)

// target resolves the message a solving action is aimed at and checks the
// caller may act on it now.
func (s *snapshot) target(targetID, userID string, now time.Time) (*store.Message, error) {
	if s.game.Status != StatusSolving {
		return nil, ErrWrongPhase
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}

	target := ActiveTarget(s.messages)
	if target == nil || target.ID != targetID {
		if m := s.message(targetID); m != nil && (m.IsSolved || m.Strikes >= MaxStrikes) {
			return nil, ErrAlreadySolved
		}
		return nil, ErrNotActiveTarget
	}

	if !CanAttempt(s.game, target, s.player(target.UserID), userID, now) {
		return nil, ErrNotTargetOwner
	}
	return target, nil
}

// SolveAttempt checks a guess against the active target. A match awards
// points; a miss adds a strike, and the third strike loses the word.
func (e *Engine) SolveAttempt(ctx context.Context, gameID, userID, targetID, guess string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	guess = strings.TrimSpace(SanitizeContent(guess))
	if guess == "" {
		return nil, ErrEmptyGuess
	}

	target, err := s.target(targetID, userID, e.clock.Now())
	if err != nil {
		return nil, err
	}

	guesser := s.player(userID)
	team := TeamState{
		ConsecutiveCorrect: s.game.TeamConsecutiveCorrect,
		FeverRemaining:     s.game.FeverModeRemaining,
	}
	prediction := PredictSolve(SolveInput{
		Content:            target.Content,
		AuthorID:           target.UserID,
		HintLevel:          target.HintLevel,
		GuesserID:          userID,
		GuesserConsecutive: guesser.ConsecutiveCorrectGuesses,
		Team:               team,
		Guess:              guess,
	})

	now := e.clock.Now()
	last := RemainingTargets(s.messages) == 1

	if prediction.Correct {
		d := prediction.Distribution
		err = e.store.ResolveSolve(ctx, &store.SolveUpdate{
			GameID:                     gameID,
			MessageID:                  target.ID,
			GuesserID:                  userID,
			AuthorID:                   target.UserID,
			WinnerPoints:               d.WinnerPoints,
			AuthorPoints:               d.AuthorPoints,
			ExpectedHintLevel:          target.HintLevel,
			ExpectedGuesserConsecutive: guesser.ConsecutiveCorrectGuesses,
			GuesserConsecutive:         prediction.GuesserConsecutive,
			ExpectedTeam:               [2]int{team.ConsecutiveCorrect, team.FeverRemaining},
			TeamConsecutive:            prediction.Team.ConsecutiveCorrect,
			FeverRemaining:             prediction.Team.FeverRemaining,
			PotIncrease:                d.TotalPoints,
			SolvingStartedAt:           now,
			Complete:                   last,
		})
	} else {
		err = e.store.RecordStrike(ctx, &store.StrikeUpdate{
			GameID:           gameID,
			MessageID:        target.ID,
			GuesserID:        userID,
			ExpectedStrikes:  target.Strikes,
			Lost:             target.Strikes+1 >= MaxStrikes,
			SolvingStartedAt: now,
			Complete:         last && target.Strikes+1 >= MaxStrikes,
		})
	}
	if errors.Is(err, store.ErrConflict) {
		return nil, e.solveConflict(ctx, gameID, target.ID)
	}
	if err != nil {
		return nil, dependency("failed to record guess", err)
	}

	result := &Result{Solve: &prediction}
	if prediction.Correct {
		log.Info().Str("gameId", gameID).Str("messageId", target.ID).Str("userId", userID).
			Str("kind", string(prediction.Distribution.Kind)).Int("points", prediction.Distribution.TotalPoints).
			Msg("message solved")

		events = append(events, &Event{
			Type:   EventMessageSolved,
			GameID: gameID,
			Payload: SolvedPayload{
				MessageID:    target.ID,
				Content:      target.Content,
				SolvedBy:     userID,
				Distribution: prediction.Distribution,
				Multiplier:   prediction.Multiplier,
				FeverApplied: prediction.FeverApplied,
				Team:         prediction.Team,
			},
		})
	} else {
		strikes := target.Strikes + 1
		lost := strikes >= MaxStrikes
		result.Strikes = strikes

		payload := StrikePayload{MessageID: target.ID, UserID: userID, Strikes: strikes, Lost: lost}
		eventType := EventStrike
		if lost {
			payload.Content = target.Content
			eventType = EventMessageLost
		}
		events = append(events, &Event{Type: eventType, GameID: gameID, Payload: payload})
	}

	resolved := prediction.Correct || target.Strikes+1 >= MaxStrikes
	switch {
	case resolved && last:
		events = append(events, e.completedEvent(ctx, gameID)...)
	case resolved:
		next := e.nextTarget(ctx, gameID)
		events = append(events, &Event{
			Type:    EventTargetChanged,
			GameID:  gameID,
			Payload: TargetPayload{ActiveTargetID: next, SolvingStartedAt: now},
		})
	}

	result.Events = events
	return result, nil
}

// solveConflict explains why a conditional write lost.
func (e *Engine) solveConflict(ctx context.Context, gameID, targetID string) error {
	s, err := e.load(ctx, gameID)
	if err != nil {
		return err
	}
	if m := s.message(targetID); m != nil && m.IsSolved {
		return ErrAlreadySolved
	}
	return ErrStaleState
}

func (e *Engine) nextTarget(ctx context.Context, gameID string) string {
	s, err := e.load(ctx, gameID)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Msg("failed to load next target")
		return ""
	}
	if t := ActiveTarget(s.messages); t != nil {
		return t.ID
	}
	return ""
}

// GetHint raises the target's hint tier by one. Tier 3 also asks the hint
// provider for a clue, subject to quotas; if the provider fails the tier
// still advances without a clue.
func (e *Engine) GetHint(ctx context.Context, gameID, userID, targetID, ip string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	target, err := s.target(targetID, userID, e.clock.Now())
	if err != nil {
		return nil, err
	}
	if target.HintLevel >= MaxHintLevel {
		return nil, ErrMaxHintLevel
	}

	next := target.HintLevel + 1
	update := &store.HintUpdate{
		MessageID:  target.ID,
		FromLevel:  target.HintLevel,
		ToLevel:    next,
		CipherText: target.CipherText,
	}
	if next < MaxHintLevel {
		update.CipherText = AdvanceCipher(target.Content, target.CipherText, next)
	}

	if next == MaxHintLevel {
		if err := e.consumeHintQuota(ctx, gameID, userID, ip); err != nil {
			return nil, err
		}
		update.AIHint = e.clue(ctx, gameID, target)
	}

	err = e.store.AdvanceHint(ctx, update)
	if errors.Is(err, store.ErrConflict) {
		return nil, e.solveConflict(ctx, gameID, target.ID)
	}
	if err != nil {
		return nil, dependency("failed to save hint", err)
	}

	hint := &HintPayload{
		MessageID:  target.ID,
		HintLevel:  next,
		CipherText: update.CipherText,
		AIHint:     update.AIHint,
	}
	events = append(events, &Event{Type: EventHintRevealed, GameID: gameID, Payload: *hint})
	return &Result{Events: events, Hint: hint}, nil
}

func (e *Engine) consumeHintQuota(ctx context.Context, gameID, userID, ip string) error {
	quotas := []store.Quota{{
		Scope:  ScopePlayerGame,
		Key:    gameID + ":" + userID,
		Period: "game",
		Limit:  e.limits.PerPlayerGame,
	}}
	if ip != "" && e.limits.PerIPDay > 0 {
		quotas = append(quotas, store.Quota{
			Scope:  ScopeIPDay,
			Key:    ip,
			Period: e.clock.Now().UTC().Format("2006-01-02"),
			Limit:  e.limits.PerIPDay,
		})
	}

	scope, err := e.store.ConsumeHintQuota(ctx, quotas)
	if err != nil {
		return dependency("failed to check hint quota", err)
	}
	switch scope {
	case ScopePlayerGame:
		return ErrHintLimitPlayer
	case ScopeIPDay:
		return ErrHintLimitIP
	}
	return nil
}

// clue asks the provider for a text hint. Failures are logged and yield no
// clue.
func (e *Engine) clue(ctx context.Context, gameID string, target *store.Message) string {
	if e.hints == nil {
		return ""
	}
	if e.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.Timeout)
		defer cancel()
	}

	clue, err := e.hints.Clue(ctx, target.Content)
	if err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Str("messageId", target.ID).Msg("hint provider failed, advancing without clue")
		return ""
	}
	return strings.TrimSpace(clue)
}
