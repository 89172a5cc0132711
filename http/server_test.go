package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"wordplay/game"
	"wordplay/store"
	"wordplay/ws"
)

func newTestServer(t *testing.T, opts Options) http.Handler {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub()
	engine := game.NewEngine(st, game.WithNotifier(hub))
	manager := ws.NewManager(engine, hub, 10, 10)

	if opts.RatePerSec == 0 {
		opts.RatePerSec, opts.Burst = 1000, 1000
	}
	return NewServer(ctx, engine, manager, opts).Handler()
}

func do(t *testing.T, h http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:5555"
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, Options{})
	rec := do(t, h, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestIdentityRequired(t *testing.T) {
	h := newTestServer(t, Options{})
	if rec := do(t, h, "GET", "/api/games", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGatewayToken(t *testing.T) {
	h := newTestServer(t, Options{GatewayToken: "s3cret"})

	if rec := do(t, h, "GET", "/api/games", "u1", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("without token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest("GET", "/api/games", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set("Authorization", "Bearer s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", rec.Code)
	}
}

func TestGameFlow(t *testing.T) {
	h := newTestServer(t, Options{DefaultMaxMessages: 4})

	rec := do(t, h, "POST", "/api/games", "u1", map[string]interface{}{})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created game.GameState
	json.NewDecoder(rec.Body).Decode(&created)
	if created.MaxMessages != 4 {
		t.Errorf("max messages = %d, want configured default 4", created.MaxMessages)
	}
	base := "/api/games/" + created.ID

	if rec := do(t, h, "POST", base+"/join", "u2", nil); rec.Code != http.StatusOK {
		t.Fatalf("join status = %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, "POST", base+"/join", "u2", nil); rec.Code != http.StatusConflict {
		t.Errorf("rejoin status = %d, want 409", rec.Code)
	}

	if rec := do(t, h, "POST", base+"/actions", "u1", game.Action{Type: game.ActionStartGame}); rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}

	rec = do(t, h, "POST", base+"/actions", "u2", game.Action{Type: game.ActionSendMessage, Content: "apple"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("out of turn status = %d, want 403", rec.Code)
	}
	var body errorBody
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Kind != string(game.KindAuthorization) {
		t.Errorf("kind = %q", body.Kind)
	}

	if rec := do(t, h, "POST", base+"/actions", "u1", game.Action{Type: game.ActionSendMessage, Content: "one two three four"}); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid content status = %d, want 400", rec.Code)
	}

	send := game.Action{Type: game.ActionSendMessage, Content: "apple", IdempotencyKey: "k1"}
	if rec := do(t, h, "POST", base+"/actions", "u1", send); rec.Code != http.StatusCreated {
		t.Fatalf("send status = %d: %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, "POST", base+"/actions", "u1", send); rec.Code != http.StatusOK {
		t.Errorf("replayed send status = %d, want 200", rec.Code)
	}

	rec = do(t, h, "GET", base, "u2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}
	var state game.GameState
	json.NewDecoder(rec.Body).Decode(&state)
	if len(state.Messages) != 1 || state.Messages[0].Content != "" || state.CurrentTurnUserID != "u2" {
		t.Errorf("state = %+v", state)
	}

	rec = do(t, h, "POST", base+"/actions", "u2", game.Action{Type: game.ActionSolveAttempt, TargetID: state.Messages[0].ID, GuessText: "apple"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("solve while texting status = %d, want 403", rec.Code)
	}
}

func TestNotFoundAndBadBody(t *testing.T) {
	h := newTestServer(t, Options{})

	if rec := do(t, h, "GET", "/api/games/missing", "u1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing game status = %d, want 404", rec.Code)
	}

	req := httptest.NewRequest("POST", "/api/games/missing/actions", bytes.NewBufferString("{not json"))
	req.Header.Set(HeaderUserID, "u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Options{RatePerSec: 0.001, Burst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, "GET", "/api/games", "u1", nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRateLimitPerClientBehindGateway(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"verified gateway", "s3cret", http.StatusOK},
		{"no gateway token", "", http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, Options{GatewayToken: tt.token, RatePerSec: 0.001, Burst: 1})

			codes := make(map[string]int)
			for _, c := range []struct{ user, ip string }{{"alice", "203.0.113.7"}, {"bob", "198.51.100.9"}} {
				req := httptest.NewRequest("GET", "/api/games", nil)
				req.RemoteAddr = "10.0.0.254:443"
				req.Header.Set(HeaderUserID, c.user)
				req.Header.Set("X-Forwarded-For", c.ip)
				if tt.token != "" {
					req.Header.Set("Authorization", "Bearer "+tt.token)
				}
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				codes[c.user] = rec.Code
			}

			if codes["alice"] != http.StatusOK {
				t.Errorf("alice status = %d, want 200", codes["alice"])
			}
			if codes["bob"] != tt.want {
				t.Errorf("bob status = %d, want %d", codes["bob"], tt.want)
			}
		})
	}
}

func TestWriteErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{game.ErrEmptyContent, http.StatusBadRequest},
		{game.ErrNotHost, http.StatusForbidden},
		{game.ErrProposalFinalized, http.StatusConflict},
		{game.ErrGameNotFound, http.StatusNotFound},
		{game.ErrHintLimitPlayer, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, tt.err)
		if rec.Code != tt.want {
			t.Errorf("writeError(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
