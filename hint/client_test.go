package hint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newProvider(t *testing.T, status int, clue string) (*httptest.Server, *clueRequest) {
	t.Helper()
	got := &clueRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hint" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(clueResponse{Hint: clue})
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestClue(t *testing.T) {
	srv, req := newProvider(t, http.StatusOK, "  a sweet red fruit  ")
	c := NewClient(srv.URL+"/", "secret", time.Second)

	clue, err := c.Clue(context.Background(), "cherry")
	if err != nil {
		t.Fatalf("Clue: %v", err)
	}
	if clue != "a sweet red fruit" {
		t.Errorf("clue = %q", clue)
	}
	if req.Word != "cherry" || req.MaxLength != maxClueLength {
		t.Errorf("request = %+v", req)
	}
}

func TestClueRejectsRevealingText(t *testing.T) {
	srv, _ := newProvider(t, http.StatusOK, "Rhymes with Cherry")
	c := NewClient(srv.URL, "secret", time.Second)

	if _, err := c.Clue(context.Background(), "cherry pie"); !errors.Is(err, ErrRevealingClue) {
		t.Errorf("error = %v, want ErrRevealingClue", err)
	}
}

func TestClueProviderError(t *testing.T) {
	srv, _ := newProvider(t, http.StatusBadGateway, "")
	c := NewClient(srv.URL, "secret", time.Second)

	if _, err := c.Clue(context.Background(), "cherry"); err == nil {
		t.Error("expected an error for a failed provider")
	}
}

func TestCheckClue(t *testing.T) {
	if _, err := checkClue("   ", "cat"); !errors.Is(err, ErrEmptyClue) {
		t.Errorf("empty clue error = %v", err)
	}
	// Words of two letters or fewer are too common to police.
	if clue, err := checkClue("it is on a mat", "on"); err != nil || clue == "" {
		t.Errorf("short word clue = %q, %v", clue, err)
	}
	long := strings.Repeat("x", maxClueLength+20)
	if clue, err := checkClue(long, "cat"); err != nil || len([]rune(clue)) != maxClueLength {
		t.Errorf("long clue length = %d, %v", len([]rune(clue)), err)
	}
}
