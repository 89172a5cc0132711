package game

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wordplay/store"
)

var ErrNothingToSolve = newError(KindValidation, "send at least one message before solving")

// SendMessage appends a message for the player holding the turn and passes
// the turn on. Reaching max_messages opens a solve proposal in the same
// write. A retry with the same idempotency key, or the same author repeating
// the same words within a few seconds, returns the original message.
func (e *Engine) SendMessage(ctx context.Context, gameID, userID, raw, idempotencyKey string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	if !IsTexting(s.game.Status) {
		return nil, ErrWrongPhase
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}

	content, err := ValidateContent(raw)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if replay, err := e.findReplay(ctx, s, userID, content, idempotencyKey, now); err != nil || replay != nil {
		return replay, err
	}

	if s.game.SolvingProposalCreatedAt != nil {
		return nil, ErrProposalOpen
	}
	if s.game.CurrentTurnUserID != userID {
		return nil, ErrNotYourTurn
	}
	if FindDuplicate(s.messages, content) != nil {
		return nil, ErrDuplicateContent
	}

	next := NextTurn(ActivePlayerIDs(s.players), userID)
	if next == "" {
		next = userID
	}

	var proposalAt *time.Time
	if TextMessageCount(s.messages)+1 >= s.game.MaxMessages {
		proposalAt = &now
	}

	msg := &store.Message{
		ID:             uuid.NewString(),
		GameID:         gameID,
		UserID:         userID,
		Content:        content,
		CipherText:     GenerateCipher(content, 0),
		CipherLength:   utf8.RuneCountInString(content),
		Type:           MessageTypeText,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      now,
	}

	err = e.store.AppendMessage(ctx, msg, userID, next, proposalAt)
	if errors.Is(err, store.ErrConflict) {
		if replay, rerr := e.findReplay(ctx, s, userID, content, idempotencyKey, now); rerr == nil && replay != nil {
			return replay, nil
		}
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, dependency("failed to save message", err)
	}

	log.Debug().Str("gameId", gameID).Str("userId", userID).Str("messageId", msg.ID).Msg("message sent")

	sent := []*Event{
		{Type: EventMessageSent, GameID: gameID, Payload: MessageSentPayload{Message: toMessageView(msg, "")}},
		{Type: EventTurnChanged, GameID: gameID, Payload: TurnChangedPayload{PreviousPlayerID: userID, CurrentPlayerID: next}},
	}
	if proposalAt != nil {
		sent = append(sent, &Event{
			Type:   EventProposalOpened,
			GameID: gameID,
			Payload: ProposalPayload{
				UserID:        userID,
				Deadline:      proposalAt.Add(ProposalWindow),
				Confirmations: []string{userID},
			},
		})
	}
	events = append(events, sent...)

	return &Result{Events: events, Message: toMessageView(msg, userID)}, nil
}

func (e *Engine) findReplay(ctx context.Context, s *snapshot, userID, content, key string, now time.Time) (*Result, error) {
	var prior *store.Message
	if key != "" {
		m, err := e.store.GetMessageByIdempotencyKey(ctx, s.game.ID, key)
		if err != nil {
			return nil, dependency("failed to check idempotency key", err)
		}
		prior = m
	} else if dup := FindDuplicate(s.messages, content); dup != nil && dup.UserID == userID && now.Sub(dup.CreatedAt) <= replayWindow {
		prior = dup
	}

	if prior == nil {
		return nil, nil
	}
	if prior.UserID != userID {
		return nil, ErrStaleState
	}
	return &Result{Message: toMessageView(prior, userID), Replay: true}, nil
}

// ProposeSolve opens the confirmation window. The proposer counts as the
// first confirmation.
func (e *Engine) ProposeSolve(ctx context.Context, gameID, userID string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	if !IsTexting(s.game.Status) {
		return nil, ErrWrongPhase
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}
	if s.game.SolvingProposalCreatedAt != nil {
		return nil, ErrProposalOpen
	}
	if TextMessageCount(s.messages) == 0 {
		return nil, ErrNothingToSolve
	}

	now := e.clock.Now()
	err = e.store.OpenProposal(ctx, gameID, userID, now)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrProposalOpen
	}
	if err != nil {
		return nil, dependency("failed to open proposal", err)
	}

	events = append(events, &Event{
		Type:   EventProposalOpened,
		GameID: gameID,
		Payload: ProposalPayload{
			UserID:        userID,
			Deadline:      now.Add(ProposalWindow),
			Confirmations: []string{userID},
		},
	})
	return &Result{Events: events}, nil
}

// DenySolve cancels an open proposal while its window is still open.
func (e *Engine) DenySolve(ctx context.Context, gameID, userID string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	if !IsTexting(s.game.Status) {
		if s.game.Status == StatusSolving {
			return nil, ErrProposalFinalized
		}
		return nil, ErrWrongPhase
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}
	if s.game.SolvingProposalCreatedAt == nil {
		return nil, ErrNoProposal
	}

	now := e.clock.Now()
	err = e.store.ClearProposal(ctx, gameID, now.Add(-ProposalWindow))
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrProposalFinalized
	}
	if err != nil {
		return nil, dependency("failed to clear proposal", err)
	}

	events = append(events, &Event{
		Type:    EventProposalDenied,
		GameID:  gameID,
		Payload: ProposalPayload{UserID: userID},
	})
	return &Result{Events: events}, nil
}

// ConfirmSolve records the caller's confirmation. Once every active player
// has confirmed, solving starts without waiting for the window.
func (e *Engine) ConfirmSolve(ctx context.Context, gameID, userID string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	if !IsTexting(s.game.Status) {
		if s.game.Status == StatusSolving {
			return nil, ErrProposalFinalized
		}
		return nil, ErrWrongPhase
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}
	if s.game.SolvingProposalCreatedAt == nil {
		return nil, ErrNoProposal
	}

	if err := e.store.AddConfirmation(ctx, gameID, userID); err != nil {
		return nil, dependency("failed to confirm", err)
	}

	// Count against a fresh read, not the snapshot taken before the insert.
	fresh, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	events = append(events, &Event{
		Type:   EventProposalConfirm,
		GameID: gameID,
		Payload: ProposalPayload{
			UserID:        userID,
			Confirmations: fresh.game.SolveProposalConfirmations,
		},
	})

	if IsTexting(fresh.game.Status) && fresh.game.SolvingProposalCreatedAt != nil &&
		ConfirmationsComplete(fresh.game.SolveProposalConfirmations, ActivePlayerIDs(fresh.players)) {
		now := e.clock.Now()
		started, err := e.finalize(ctx, fresh, now, now)
		if err != nil {
			return nil, err
		}
		events = append(events, started...)
	}

	return &Result{Events: events}, nil
}

// LeaveGame marks the player as gone. A leaver holding the turn passes it
// on; their unsolved messages become open to everyone. A departing host
// hands the game to the earliest remaining player.
func (e *Engine) LeaveGame(ctx context.Context, gameID, userID string) (*Result, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer func() { e.publish(gameID, events) }()

	if _, err := s.member(userID); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	update := &store.LeaveUpdate{
		GameID: gameID,
		UserID: userID,
		SystemMessage: &store.Message{
			ID:         uuid.NewString(),
			GameID:     gameID,
			UserID:     userID,
			Content:    "left the game",
			CipherText: "left the game",
			Type:       MessageTypeSystem,
			IsSolved:   true,
			CreatedAt:  now,
		},
	}
	update.SystemMessage.CipherLength = utf8.RuneCountInString(update.SystemMessage.Content)

	var remaining []string
	for _, id := range ActivePlayerIDs(s.players) {
		if id != userID {
			remaining = append(remaining, id)
		}
	}

	if IsTexting(s.game.Status) && s.game.CurrentTurnUserID == userID {
		// Rotate over the list still containing the leaver, then skip them.
		next := NextTurn(ActivePlayerIDs(s.players), userID)
		if next == userID {
			next = ""
		}
		update.RotateTurn = true
		update.ExpectedTurn = userID
		update.NextTurn = next
	}

	if s.game.HostID == userID && len(remaining) > 0 {
		update.NewHostID = remaining[0]
	}

	if len(remaining) == 0 && s.game.Status != StatusCompleted && s.game.Status != StatusArchived {
		update.Complete = true
	}

	err = e.store.LeaveGame(ctx, update)
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, dependency("failed to leave game", err)
	}

	log.Info().Str("gameId", gameID).Str("userId", userID).Msg("player left")

	current := s.game.CurrentTurnUserID
	if update.RotateTurn {
		current = update.NextTurn
	}
	host := s.game.HostID
	if update.NewHostID != "" {
		host = update.NewHostID
	}
	events = append(events, &Event{
		Type:    EventPlayerLeft,
		GameID:  gameID,
		Payload: PlayerLeftPayload{UserID: userID, CurrentPlayerID: current, HostID: host},
	})
	if update.Complete {
		events = append(events, e.completedEvent(ctx, gameID)...)
		return &Result{Events: events}, nil
	}

	// The leaver may have been the last unconfirmed player.
	if IsTexting(s.game.Status) && s.game.SolvingProposalCreatedAt != nil {
		fresh, err := e.load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if IsTexting(fresh.game.Status) && fresh.game.SolvingProposalCreatedAt != nil &&
			ConfirmationsComplete(fresh.game.SolveProposalConfirmations, ActivePlayerIDs(fresh.players)) {
			started, err := e.finalize(ctx, fresh, now, now)
			if err != nil {
				return nil, err
			}
			events = append(events, started...)
		}
	}

	return &Result{Events: events}, nil
}
