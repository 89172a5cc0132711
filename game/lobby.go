package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wordplay/store"
)

const (
	DefaultMode      = "classic"
	maxMessagesLimit = 100
)

// CreateGame opens a lobby with the host as its first player.
func (e *Engine) CreateGame(ctx context.Context, hostID string, maxMessages int, mode string) (*GameState, error) {
	if hostID == "" {
		return nil, ErrUserNotInGame
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if maxMessages > maxMessagesLimit {
		maxMessages = maxMessagesLimit
	}
	if mode == "" {
		mode = DefaultMode
	}

	game := &store.Game{
		ID:          uuid.NewString(),
		Status:      StatusLobby,
		Mode:        mode,
		HostID:      hostID,
		MaxMessages: maxMessages,
		CreatedAt:   e.clock.Now(),
	}
	if err := e.store.CreateGame(ctx, game); err != nil {
		return nil, dependency("failed to create game", err)
	}

	log.Info().Str("gameId", game.ID).Int64("handle", game.Handle).Str("host", hostID).Msg("game created")
	return e.GetGameState(ctx, game.ID, hostID)
}

// ListGames returns games that are still running, without message content.
func (e *Engine) ListGames(ctx context.Context) ([]*GameState, error) {
	games, err := e.store.ListGames(ctx)
	if err != nil {
		return nil, dependency("failed to list games", err)
	}

	states := make([]*GameState, 0, len(games))
	for _, g := range games {
		players, err := e.store.GetGamePlayers(ctx, g.ID)
		if err != nil {
			return nil, dependency("failed to load players", err)
		}
		states = append(states, &GameState{
			ID:                g.ID,
			Handle:            g.Handle,
			Status:            g.Status,
			Mode:              g.Mode,
			HostID:            g.HostID,
			CurrentTurnUserID: g.CurrentTurnUserID,
			MaxMessages:       g.MaxMessages,
			Players:           toPlayers(g, players),
		})
	}
	return states, nil
}

func (e *Engine) JoinGame(ctx context.Context, gameID, userID string) (*Result, error) {
	s, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if s.game.Status != StatusLobby {
		return nil, ErrWrongPhase
	}
	if s.player(userID) != nil {
		return nil, ErrAlreadyInGame
	}

	now := e.clock.Now()
	if err := e.store.AddPlayer(ctx, gameID, userID, now); err != nil {
		return nil, dependency("failed to join game", err)
	}

	events := []*Event{{
		Type:   EventPlayerJoined,
		GameID: gameID,
		Payload: PlayerJoinedPayload{
			Player: &Player{UserID: userID, JoinedAt: now},
		},
	}}
	e.publish(gameID, events)
	return &Result{Events: events}, nil
}

// StartGame moves a lobby to texting. The earliest joined player writes
// first.
func (e *Engine) StartGame(ctx context.Context, gameID, userID string) (*Result, error) {
	s, err := e.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, err := s.member(userID); err != nil {
		return nil, err
	}
	if s.game.HostID != userID {
		return nil, ErrNotHost
	}
	if s.game.Status != StatusLobby {
		return nil, ErrWrongPhase
	}

	active := ActivePlayerIDs(s.players)
	if len(active) == 0 {
		return nil, ErrWrongPhase
	}

	err = e.store.StartGame(ctx, gameID, active[0])
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, dependency("failed to start game", err)
	}

	events := []*Event{{
		Type:    EventGameStarted,
		GameID:  gameID,
		Payload: GameStartedPayload{CurrentPlayerID: active[0]},
	}}
	e.publish(gameID, events)
	return &Result{Events: events}, nil
}
