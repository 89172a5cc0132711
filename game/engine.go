package game

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"wordplay/store"
)

// HintProvider writes a short clue for a word without giving it away.
type HintProvider interface {
	Clue(ctx context.Context, content string) (string, error)
}

// Notifier fans committed changes out to everyone watching a game.
// Delivery is best effort.
type Notifier interface {
	Publish(gameID string, events []*Event)
}

// HintLimits caps tier-3 hints. Zero disables the IP limit.
type HintLimits struct {
	PerPlayerGame int
	PerIPDay      int
	Timeout       time.Duration
}

// Engine is the only writer of game state. Every action re-reads the stored
// game, checks it, and writes through conditional updates so concurrent
// actions cannot both take effect.
type Engine struct {
	store    store.Store
	clock    clockwork.Clock
	hints    HintProvider
	notifier Notifier
	limits   HintLimits
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithHintProvider(p HintProvider) Option {
	return func(e *Engine) { e.hints = p }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithHintLimits(l HintLimits) Option {
	return func(e *Engine) { e.limits = l }
}

func NewEngine(store store.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: clockwork.NewRealClock(),
		limits: HintLimits{
			PerPlayerGame: 3,
			PerIPDay:      20,
			Timeout:       5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Clock exposes the engine clock so schedulers can share it.
func (e *Engine) Clock() clockwork.Clock {
	return e.clock
}

// Result is what an accepted action produced.
type Result struct {
	Events  []*Event         `json:"events,omitempty"`
	Message *MessageView     `json:"message,omitempty"`
	Solve   *SolvePrediction `json:"solve,omitempty"`
	Strikes int              `json:"strikes,omitempty"`
	Hint    *HintPayload     `json:"hint,omitempty"`
	Replay  bool             `json:"replay,omitempty"`
}

type snapshot struct {
	game     *store.Game
	players  []*store.GamePlayer
	messages []*store.Message
}

func (s *snapshot) player(userID string) *store.GamePlayer {
	for _, p := range s.players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

func (s *snapshot) message(id string) *store.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (e *Engine) load(ctx context.Context, gameID string) (*snapshot, error) {
	if gameID == "" {
		return nil, ErrGameNotFound
	}

	game, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return nil, dependency("failed to load game", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}

	players, err := e.store.GetGamePlayers(ctx, gameID)
	if err != nil {
		return nil, dependency("failed to load players", err)
	}

	messages, err := e.store.GetMessages(ctx, gameID)
	if err != nil {
		return nil, dependency("failed to load messages", err)
	}

	return &snapshot{game: game, players: players, messages: messages}, nil
}

// prepare loads the game and applies any transition whose deadline already
// passed, so every action sees current state.
func (e *Engine) prepare(ctx context.Context, gameID string) (*snapshot, []*Event, error) {
	s, err := e.load(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}

	events, err := e.advance(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	if len(events) == 0 {
		return s, nil, nil
	}

	s, err = e.load(ctx, gameID)
	if err != nil {
		return nil, nil, err
	}
	return s, events, nil
}

func (e *Engine) advance(ctx context.Context, s *snapshot) ([]*Event, error) {
	now := e.clock.Now()

	switch {
	case IsTexting(s.game.Status) && ProposalExpired(s.game, now):
		return e.finalize(ctx, s, now.Add(-ProposalWindow), now)
	case s.game.Status == StatusSolving && ActiveTarget(s.messages) == nil:
		return e.complete(ctx, s.game.ID)
	}
	return nil, nil
}

// finalize moves an open proposal to solving. Losing the race to another
// writer is not an error.
func (e *Engine) finalize(ctx context.Context, s *snapshot, openedBefore, now time.Time) ([]*Event, error) {
	err := e.store.FinalizeProposal(ctx, s.game.ID, openedBefore, now)
	if errors.Is(err, store.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, dependency("failed to start solving", err)
	}

	log.Info().Str("gameId", s.game.ID).Msg("solving phase started")

	target := ActiveTarget(s.messages)
	if target == nil {
		events, err := e.complete(ctx, s.game.ID)
		return append([]*Event{{Type: EventSolvingStarted, GameID: s.game.ID, Payload: SolvingStartedPayload{SolvingStartedAt: now}}}, events...), err
	}

	return []*Event{{
		Type:   EventSolvingStarted,
		GameID: s.game.ID,
		Payload: SolvingStartedPayload{
			SolvingStartedAt: now,
			ActiveTargetID:   target.ID,
		},
	}}, nil
}

func (e *Engine) complete(ctx context.Context, gameID string) ([]*Event, error) {
	err := e.store.CompleteGame(ctx, gameID)
	if errors.Is(err, store.ErrConflict) {
		return nil, nil
	}
	if err != nil {
		return nil, dependency("failed to complete game", err)
	}
	return e.completedEvent(ctx, gameID), nil
}

func (e *Engine) completedEvent(ctx context.Context, gameID string) []*Event {
	log.Info().Str("gameId", gameID).Msg("game completed")

	payload := CompletedPayload{}
	if s, err := e.load(ctx, gameID); err == nil {
		payload.Players = toPlayers(s.game, s.players)
		payload.TeamPot = s.game.TeamPot
	} else {
		log.Warn().Err(err).Str("gameId", gameID).Msg("failed to load final standings")
	}
	return []*Event{{Type: EventGameCompleted, GameID: gameID, Payload: payload}}
}

// Tick applies elapsed deadlines for one game. The sweeper calls it for
// games with an expired proposal.
func (e *Engine) Tick(ctx context.Context, gameID string) ([]*Event, error) {
	_, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	e.publish(gameID, events)
	return events, nil
}

func (e *Engine) GetGameState(ctx context.Context, gameID, viewerID string) (*GameState, error) {
	s, events, err := e.prepare(ctx, gameID)
	if err != nil {
		return nil, err
	}
	e.publish(gameID, events)
	return buildState(s, viewerID), nil
}

func (e *Engine) publish(gameID string, events []*Event) {
	if e.notifier == nil || len(events) == 0 {
		return
	}
	e.notifier.Publish(gameID, events)
}

// member returns the acting player, rejecting strangers and leavers.
func (s *snapshot) member(userID string) (*store.GamePlayer, error) {
	p := s.player(userID)
	if p == nil {
		return nil, ErrUserNotInGame
	}
	if p.HasLeft {
		return nil, ErrPlayerLeft
	}
	return p, nil
}

func buildState(s *snapshot, viewerID string) *GameState {
	g := s.game
	state := &GameState{
		ID:                g.ID,
		Handle:            g.Handle,
		Status:            g.Status,
		Mode:              g.Mode,
		HostID:            g.HostID,
		CurrentTurnUserID: g.CurrentTurnUserID,
		MaxMessages:       g.MaxMessages,
		Players:           toPlayers(g, s.players),
		Messages:          make([]*MessageView, 0, len(s.messages)),
		ProposalDeadline:  ProposalDeadline(g),
		Confirmations:     g.SolveProposalConfirmations,
		SolvingStartedAt:  g.SolvingStartedAt,
		FreeForAllAt:      FreeForAllAt(g),
		TeamPot:           g.TeamPot,
		Team: TeamState{
			ConsecutiveCorrect: g.TeamConsecutiveCorrect,
			FeverRemaining:     g.FeverModeRemaining,
		},
	}

	for _, m := range s.messages {
		state.Messages = append(state.Messages, toMessageView(m, viewerID))
	}
	if g.Status == StatusSolving {
		if target := ActiveTarget(s.messages); target != nil {
			state.ActiveTargetID = target.ID
		}
	}
	return state
}

func toPlayers(g *store.Game, players []*store.GamePlayer) []*Player {
	out := make([]*Player, len(players))
	for i, p := range players {
		out[i] = &Player{
			UserID:                    p.UserID,
			Score:                     p.Score,
			ConsecutiveCorrectGuesses: p.ConsecutiveCorrectGuesses,
			HasLeft:                   p.HasLeft,
			JoinedAt:                  p.JoinedAt,
			IsCurrentTurn:             IsTexting(g.Status) && g.CurrentTurnUserID == p.UserID,
		}
	}
	return out
}

// toMessageView hides content until the message is resolved, except from
// its author.
func toMessageView(m *store.Message, viewerID string) *MessageView {
	v := &MessageView{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         m.Type,
		CipherText:   m.CipherText,
		CipherLength: m.CipherLength,
		HintLevel:    m.HintLevel,
		Strikes:      m.Strikes,
		IsSolved:     m.IsSolved,
		SolvedBy:     m.SolvedBy,
		WinnerPoints: m.WinnerPoints,
		AuthorPoints: m.AuthorPoints,
		AIHint:       m.AIHint,
		Value:        MessageValue(m.Content),
	}
	if m.IsSolved || m.Strikes >= MaxStrikes || m.Type == MessageTypeSystem || (viewerID != "" && m.UserID == viewerID) {
		v.Content = m.Content
	}
	return v
}
