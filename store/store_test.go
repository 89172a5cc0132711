package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedSolving creates a solving game with one message per author.
func seedSolving(t *testing.T, s *SQLiteStore, authors ...string) (*Game, []*Message) {
	t.Helper()
	ctx := context.Background()

	game := &Game{ID: "g1", Status: "lobby", Mode: "classic", HostID: authors[0], MaxMessages: 10, CreatedAt: t0}
	if err := s.CreateGame(ctx, game); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	for i, a := range authors[1:] {
		if err := s.AddPlayer(ctx, game.ID, a, t0.Add(time.Duration(i+1)*time.Second)); err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
	}
	if err := s.StartGame(ctx, game.ID, authors[0]); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	var msgs []*Message
	for i, a := range authors {
		next := authors[(i+1)%len(authors)]
		msg := &Message{ID: "m" + a, GameID: game.ID, UserID: a, Content: "word " + a, CipherText: "xxxx xx", Type: "text", CreatedAt: t0}
		if err := s.AppendMessage(ctx, msg, a, next, nil); err != nil {
			t.Fatalf("AppendMessage(%s): %v", a, err)
		}
		msgs = append(msgs, msg)
	}

	if err := s.OpenProposal(ctx, game.ID, authors[0], t0); err != nil {
		t.Fatalf("OpenProposal: %v", err)
	}
	if err := s.FinalizeProposal(ctx, game.ID, t0, t0.Add(10*time.Second)); err != nil {
		t.Fatalf("FinalizeProposal: %v", err)
	}
	return game, msgs
}

func TestCreateGameAssignsHandles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		g := &Game{ID: id, Status: "lobby", Mode: "classic", HostID: "host", MaxMessages: 5, CreatedAt: t0}
		if err := s.CreateGame(ctx, g); err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
		if g.Handle != int64(i+1) {
			t.Errorf("handle = %d, want %d", g.Handle, i+1)
		}
	}

	got, err := s.GetGame(ctx, "b")
	if err != nil || got == nil {
		t.Fatalf("GetGame: %v, %v", got, err)
	}
	if got.HostID != "host" || got.MaxMessages != 5 || !got.CreatedAt.Equal(t0) {
		t.Errorf("GetGame = %+v", got)
	}

	players, err := s.GetGamePlayers(ctx, "b")
	if err != nil || len(players) != 1 || players[0].UserID != "host" {
		t.Errorf("host not seated: %v, %v", players, err)
	}

	if missing, err := s.GetGame(ctx, "nope"); missing != nil || err != nil {
		t.Errorf("GetGame(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestAppendMessageChecksTurn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := &Game{ID: "g1", Status: "lobby", Mode: "classic", HostID: "u1", MaxMessages: 2, CreatedAt: t0}
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if err := s.StartGame(ctx, "g1", "u1"); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	if err := s.StartGame(ctx, "g1", "u1"); !errors.Is(err, ErrConflict) {
		t.Errorf("second start error = %v, want ErrConflict", err)
	}

	msg := &Message{ID: "m1", GameID: "g1", UserID: "u2", Content: "hi", Type: "text", CreatedAt: t0}
	if err := s.AppendMessage(ctx, msg, "u2", "u1", nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("out of turn append error = %v, want ErrConflict", err)
	}

	msg = &Message{ID: "m1", GameID: "g1", UserID: "u1", Content: "hi", Type: "text", IdempotencyKey: "k1", CreatedAt: t0}
	if err := s.AppendMessage(ctx, msg, "u1", "u1", &t0); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	got, err := s.GetGame(ctx, "g1")
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.SolvingProposalCreatedAt == nil || len(got.SolveProposalConfirmations) != 1 {
		t.Errorf("proposal not opened with the sender confirmed: %+v", got)
	}

	byKey, err := s.GetMessageByIdempotencyKey(ctx, "g1", "k1")
	if err != nil || byKey == nil || byKey.ID != "m1" {
		t.Errorf("GetMessageByIdempotencyKey = %v, %v", byKey, err)
	}

	due, err := s.ListDueProposals(ctx, t0)
	if err != nil || len(due) != 1 {
		t.Errorf("ListDueProposals = %v, %v", due, err)
	}
	if due, _ := s.ListDueProposals(ctx, t0.Add(-time.Second)); len(due) != 0 {
		t.Errorf("proposal listed before it was due: %v", due)
	}
}

func TestProposalLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := &Game{ID: "g1", Status: "lobby", Mode: "classic", HostID: "u1", MaxMessages: 10, CreatedAt: t0}
	if err := s.CreateGame(ctx, g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	s.AddPlayer(ctx, "g1", "u2", t0)
	s.StartGame(ctx, "g1", "u1")

	if err := s.OpenProposal(ctx, "g1", "u1", t0); err != nil {
		t.Fatalf("OpenProposal: %v", err)
	}
	if err := s.OpenProposal(ctx, "g1", "u2", t0); !errors.Is(err, ErrConflict) {
		t.Errorf("second proposal error = %v, want ErrConflict", err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddConfirmation(ctx, "g1", "u2"); err != nil {
			t.Fatalf("AddConfirmation: %v", err)
		}
	}
	got, _ := s.GetGame(ctx, "g1")
	if len(got.SolveProposalConfirmations) != 2 {
		t.Errorf("confirmations = %v, want u1 and u2 once each", got.SolveProposalConfirmations)
	}

	// Window closed: deny loses.
	if err := s.ClearProposal(ctx, "g1", t0); !errors.Is(err, ErrConflict) {
		t.Errorf("late clear error = %v, want ErrConflict", err)
	}
	if err := s.ClearProposal(ctx, "g1", t0.Add(-time.Second)); err != nil {
		t.Fatalf("ClearProposal: %v", err)
	}

	got, _ = s.GetGame(ctx, "g1")
	if got.SolvingProposalCreatedAt != nil || len(got.SolveProposalConfirmations) != 0 {
		t.Errorf("proposal not cleared: %+v", got)
	}
	if err := s.AddConfirmation(ctx, "g1", "u2"); err != nil {
		t.Fatalf("AddConfirmation without proposal: %v", err)
	}
	if got, _ := s.GetGame(ctx, "g1"); len(got.SolveProposalConfirmations) != 0 {
		t.Error("confirmation recorded without an open proposal")
	}

	if err := s.FinalizeProposal(ctx, "g1", t0, t0); !errors.Is(err, ErrConflict) {
		t.Errorf("finalize without proposal error = %v, want ErrConflict", err)
	}
}

func TestResolveSolveOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, msgs := seedSolving(t, s, "u1", "u2")

	update := &SolveUpdate{
		GameID:             "g1",
		MessageID:          msgs[1].ID,
		GuesserID:          "u1",
		AuthorID:           "u2",
		WinnerPoints:       9,
		AuthorPoints:       3,
		GuesserConsecutive: 1,
		TeamConsecutive:    1,
		PotIncrease:        12,
		SolvingStartedAt:   t0.Add(20 * time.Second),
	}
	if err := s.ResolveSolve(ctx, update); err != nil {
		t.Fatalf("ResolveSolve: %v", err)
	}
	if err := s.ResolveSolve(ctx, update); !errors.Is(err, ErrConflict) {
		t.Fatalf("second ResolveSolve error = %v, want ErrConflict", err)
	}

	players, _ := s.GetGamePlayers(ctx, "g1")
	if players[0].Score != 9 || players[1].Score != 3 || players[0].ConsecutiveCorrectGuesses != 1 {
		t.Errorf("players = %+v %+v", players[0], players[1])
	}

	game, _ := s.GetGame(ctx, "g1")
	if game.TeamPot != 12 || game.TeamConsecutiveCorrect != 1 {
		t.Errorf("game = %+v", game)
	}
	if !game.SolvingStartedAt.Equal(t0.Add(20 * time.Second)) {
		t.Errorf("solving_started_at = %v, want re-stamped", game.SolvingStartedAt)
	}

	messages, _ := s.GetMessages(ctx, "g1")
	if !messages[1].IsSolved || messages[1].SolvedBy != "u1" || messages[1].WinnerPoints != 9 {
		t.Errorf("message = %+v", messages[1])
	}
}

func TestResolveSolveStaleStreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, msgs := seedSolving(t, s, "u1", "u2")

	err := s.ResolveSolve(ctx, &SolveUpdate{
		GameID:                     "g1",
		MessageID:                  msgs[1].ID,
		GuesserID:                  "u1",
		AuthorID:                   "u2",
		WinnerPoints:               9,
		ExpectedGuesserConsecutive: 3,
		GuesserConsecutive:         4,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	messages, _ := s.GetMessages(ctx, "g1")
	if messages[1].IsSolved {
		t.Error("failed solve left the message solved")
	}
}

func TestResolveSolveStaleHintLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, msgs := seedSolving(t, s, "u1", "u2")

	if err := s.AdvanceHint(ctx, &HintUpdate{MessageID: msgs[1].ID, FromLevel: 0, ToLevel: 1, CipherText: "wxxx xx"}); err != nil {
		t.Fatalf("AdvanceHint: %v", err)
	}

	err := s.ResolveSolve(ctx, &SolveUpdate{
		GameID:             "g1",
		MessageID:          msgs[1].ID,
		GuesserID:          "u1",
		AuthorID:           "u2",
		WinnerPoints:       8,
		ExpectedHintLevel:  0,
		GuesserConsecutive: 1,
		TeamConsecutive:    1,
		PotIncrease:        8,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}

	players, _ := s.GetGamePlayers(ctx, "g1")
	if players[0].Score != 0 {
		t.Errorf("score = %d, want 0 after refused solve", players[0].Score)
	}
}

func TestRecordStrike(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, msgs := seedSolving(t, s, "u1", "u2")

	for strikes := 0; strikes < 3; strikes++ {
		err := s.RecordStrike(ctx, &StrikeUpdate{
			GameID:           "g1",
			MessageID:        msgs[1].ID,
			GuesserID:        "u1",
			ExpectedStrikes:  strikes,
			Lost:             strikes == 2,
			SolvingStartedAt: t0.Add(time.Minute),
		})
		if err != nil {
			t.Fatalf("strike %d: %v", strikes+1, err)
		}
	}

	err := s.RecordStrike(ctx, &StrikeUpdate{GameID: "g1", MessageID: msgs[1].ID, GuesserID: "u1", ExpectedStrikes: 3})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("strike on lost message error = %v, want ErrConflict", err)
	}

	messages, _ := s.GetMessages(ctx, "g1")
	if m := messages[1]; !m.IsSolved || m.Strikes != 3 || m.SolvedBy != "" {
		t.Errorf("lost message = %+v", m)
	}
	game, _ := s.GetGame(ctx, "g1")
	if !game.SolvingStartedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("solving_started_at = %v, want re-stamped after loss", game.SolvingStartedAt)
	}
}

func TestAdvanceHint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, msgs := seedSolving(t, s, "u1")

	if err := s.AdvanceHint(ctx, &HintUpdate{MessageID: msgs[0].ID, FromLevel: 0, ToLevel: 1, CipherText: "wxxx xx"}); err != nil {
		t.Fatalf("AdvanceHint: %v", err)
	}
	if err := s.AdvanceHint(ctx, &HintUpdate{MessageID: msgs[0].ID, FromLevel: 0, ToLevel: 1, CipherText: "wxxx xx"}); !errors.Is(err, ErrConflict) {
		t.Errorf("stale AdvanceHint error = %v, want ErrConflict", err)
	}
	if err := s.AdvanceHint(ctx, &HintUpdate{MessageID: msgs[0].ID, FromLevel: 1, ToLevel: 2, CipherText: "woxx xx", AIHint: "a clue"}); err != nil {
		t.Fatalf("AdvanceHint: %v", err)
	}

	messages, _ := s.GetMessages(ctx, "g1")
	if m := messages[0]; m.HintLevel != 2 || m.CipherText != "woxx xx" || m.AIHint != "a clue" {
		t.Errorf("message = %+v", m)
	}
}

func TestConsumeHintQuota(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	quotas := []Quota{
		{Scope: "player_game", Key: "g1:u1", Period: "game", Limit: 2},
		{Scope: "ip_day", Key: "10.0.0.1", Period: "2025-03-01", Limit: 3},
	}
	for i := 0; i < 2; i++ {
		scope, err := s.ConsumeHintQuota(ctx, quotas)
		if err != nil || scope != "" {
			t.Fatalf("call %d: scope=%q err=%v", i+1, scope, err)
		}
	}

	scope, err := s.ConsumeHintQuota(ctx, quotas)
	if err != nil || scope != "player_game" {
		t.Fatalf("scope = %q err = %v, want player_game", scope, err)
	}

	// Another player on the same IP has one use left, and a rejected call
	// must not have bumped the IP counter.
	other := []Quota{
		{Scope: "player_game", Key: "g1:u2", Period: "game", Limit: 2},
		quotas[1],
	}
	if scope, err := s.ConsumeHintQuota(ctx, other); err != nil || scope != "" {
		t.Fatalf("scope = %q err = %v, want allowed", scope, err)
	}
	if scope, _ := s.ConsumeHintQuota(ctx, other); scope != "ip_day" {
		t.Errorf("scope = %q, want ip_day", scope)
	}
}

func TestLeaveGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := &Game{ID: "g1", Status: "lobby", Mode: "classic", HostID: "u1", MaxMessages: 10, CreatedAt: t0}
	s.CreateGame(ctx, g)
	s.AddPlayer(ctx, "g1", "u2", t0.Add(time.Second))
	s.StartGame(ctx, "g1", "u1")

	update := &LeaveUpdate{
		GameID:       "g1",
		UserID:       "u1",
		RotateTurn:   true,
		ExpectedTurn: "u1",
		NextTurn:     "u2",
		SystemMessage: &Message{
			ID: "sys1", GameID: "g1", UserID: "u1", Content: "left the game", Type: "system", IsSolved: true, CreatedAt: t0,
		},
	}
	if err := s.LeaveGame(ctx, update); err != nil {
		t.Fatalf("LeaveGame: %v", err)
	}
	if err := s.LeaveGame(ctx, &LeaveUpdate{GameID: "g1", UserID: "u1"}); !errors.Is(err, ErrConflict) {
		t.Errorf("second leave error = %v, want ErrConflict", err)
	}

	game, _ := s.GetGame(ctx, "g1")
	if game.CurrentTurnUserID != "u2" {
		t.Errorf("turn = %s, want u2", game.CurrentTurnUserID)
	}
	players, _ := s.GetGamePlayers(ctx, "g1")
	if !players[0].HasLeft || players[1].HasLeft {
		t.Errorf("players = %+v %+v", players[0], players[1])
	}
	messages, _ := s.GetMessages(ctx, "g1")
	if len(messages) != 1 || messages[0].Type != "system" || !messages[0].IsSolved {
		t.Errorf("messages = %+v", messages)
	}
}
