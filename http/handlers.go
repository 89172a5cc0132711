package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"wordplay/game"
	"wordplay/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
}

type Handlers struct {
	engine      *game.Engine
	wsManager   *ws.Manager
	maxMessages int
}

func NewHandlers(engine *game.Engine, wsManager *ws.Manager, maxMessages int) *Handlers {
	return &Handlers{
		engine:      engine,
		wsManager:   wsManager,
		maxMessages: maxMessages,
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Scope string `json:"scope,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// writeError maps an engine rejection to a status code.
func writeError(w http.ResponseWriter, err error) {
	kind := game.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: string(kind)}

	var ge *game.Error
	if errors.As(err, &ge) {
		body.Scope = ge.Scope
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		status = http.StatusNotFound
	case kind == game.KindValidation:
		status = http.StatusBadRequest
	case kind == game.KindAuthorization:
		status = http.StatusForbidden
	case kind == game.KindConflict:
		status = http.StatusConflict
	case kind == game.KindRateLimit:
		status = http.StatusTooManyRequests
	default:
		log.Error().Err(err).Msg("request failed")
		body.Error = "internal error"
	}

	writeJSON(w, status, body)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.engine.ListGames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *Handlers) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())

	var req struct {
		MaxMessages int    `json:"maxMessages"`
		Mode        string `json:"mode"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Kind: string(game.KindValidation)})
			return
		}
	}
	if req.MaxMessages == 0 {
		req.MaxMessages = h.maxMessages
	}

	state, err := h.engine.CreateGame(r.Context(), userID, req.MaxMessages, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}

	h.refreshLobby(r.Context())
	writeJSON(w, http.StatusCreated, state)
}

func (h *Handlers) JoinGame(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	gameID := mux.Vars(r)["gameId"]

	if _, err := h.engine.JoinGame(r.Context(), gameID, userID); err != nil {
		writeError(w, err)
		return
	}

	h.refreshLobby(r.Context())
	h.writeState(w, r, gameID, userID)
}

func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	h.writeState(w, r, mux.Vars(r)["gameId"], userID)
}

func (h *Handlers) writeState(w http.ResponseWriter, r *http.Request, gameID, userID string) {
	state, err := h.engine.GetGameState(r.Context(), gameID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Action is the HTTP twin of the websocket action channel.
func (h *Handlers) Action(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())

	var action game.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Kind: string(game.KindValidation)})
		return
	}
	action.GameID = mux.Vars(r)["gameId"]
	action.UserID = userID
	action.IP = getIP(r)
	if key := r.Header.Get("Idempotency-Key"); key != "" && action.IdempotencyKey == "" {
		action.IdempotencyKey = key
	}

	result, err := h.engine.Apply(r.Context(), &action)
	if err != nil {
		writeError(w, err)
		return
	}

	if action.Type == game.ActionStartGame {
		h.refreshLobby(r.Context())
	}

	status := http.StatusOK
	if result.Message != nil && !result.Replay {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, _ := GetUserIDFromContext(r.Context())
	gameID := mux.Vars(r)["gameId"]

	// Only members may watch a game.
	if gameID != "" {
		state, err := h.engine.GetGameState(r.Context(), gameID, userID)
		if err != nil {
			writeError(w, err)
			return
		}
		if !hasPlayer(state, userID) {
			writeError(w, game.ErrUserNotInGame)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.wsManager.HandleConnection(conn, gameID, userID, getIP(r))
}

func (h *Handlers) refreshLobby(ctx context.Context) {
	games, err := h.engine.ListGames(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh lobby")
		return
	}
	h.wsManager.Hub().PublishLobby(games)
}

func hasPlayer(state *game.GameState, userID string) bool {
	for _, p := range state.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
