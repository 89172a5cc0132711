package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrConflict is returned when a conditional update finds the row no longer
// in the expected state. Another writer got there first.
var ErrConflict = errors.New("conditional update matched no rows")

type Store interface {
	CreateGame(ctx context.Context, game *Game) error
	GetGame(ctx context.Context, gameID string) (*Game, error)
	ListGames(ctx context.Context) ([]*Game, error)
	ListDueProposals(ctx context.Context, cutoff time.Time) ([]string, error)
	AddPlayer(ctx context.Context, gameID, userID string, joinedAt time.Time) error
	GetGamePlayers(ctx context.Context, gameID string) ([]*GamePlayer, error)
	GetMessages(ctx context.Context, gameID string) ([]*Message, error)
	GetMessageByIdempotencyKey(ctx context.Context, gameID, key string) (*Message, error)
	StartGame(ctx context.Context, gameID, firstTurn string) error
	AppendMessage(ctx context.Context, msg *Message, expectedTurn, nextTurn string, proposalAt *time.Time) error
	OpenProposal(ctx context.Context, gameID, proposerID string, at time.Time) error
	ClearProposal(ctx context.Context, gameID string, openedAfter time.Time) error
	AddConfirmation(ctx context.Context, gameID, userID string) error
	FinalizeProposal(ctx context.Context, gameID string, openedBefore, startedAt time.Time) error
	CompleteGame(ctx context.Context, gameID string) error
	ResolveSolve(ctx context.Context, u *SolveUpdate) error
	RecordStrike(ctx context.Context, u *StrikeUpdate) error
	AdvanceHint(ctx context.Context, u *HintUpdate) error
	LeaveGame(ctx context.Context, u *LeaveUpdate) error
	ConsumeHintQuota(ctx context.Context, quotas []Quota) (string, error)
	Close() error
}

type Game struct {
	ID                         string
	Handle                     int64
	Status                     string
	Mode                       string
	HostID                     string
	CurrentTurnUserID          string
	MaxMessages                int
	SolvingProposalCreatedAt   *time.Time
	SolveProposalConfirmations []string
	SolvingStartedAt           *time.Time
	TeamPot                    int
	TeamConsecutiveCorrect     int
	FeverModeRemaining         int
	CreatedAt                  time.Time
}

type GamePlayer struct {
	GameID                    string
	UserID                    string
	Score                     int
	ConsecutiveCorrectGuesses int
	HasLeft                   bool
	JoinedAt                  time.Time
}

type Message struct {
	ID             string
	Seq            int64
	GameID         string
	UserID         string
	Content        string
	CipherText     string
	CipherLength   int
	HintLevel      int
	Strikes        int
	IsSolved       bool
	SolvedBy       string
	WinnerPoints   int
	AuthorPoints   int
	AIHint         string
	Type           string
	IdempotencyKey string
	CreatedAt      time.Time
}

// SolveUpdate persists a correct guess. Expected* fields are the values the
// caller read; the write is refused if any of them changed.
type SolveUpdate struct {
	GameID                     string
	MessageID                  string
	GuesserID                  string
	AuthorID                   string
	WinnerPoints               int
	AuthorPoints               int
	ExpectedHintLevel          int
	ExpectedGuesserConsecutive int
	GuesserConsecutive         int
	ExpectedTeam               [2]int
	TeamConsecutive            int
	FeverRemaining             int
	PotIncrease                int
	SolvingStartedAt           time.Time
	Complete                   bool
}

// StrikeUpdate persists a wrong guess against a target.
type StrikeUpdate struct {
	GameID           string
	MessageID        string
	GuesserID        string
	ExpectedStrikes  int
	Lost             bool
	SolvingStartedAt time.Time
	Complete         bool
}

type HintUpdate struct {
	MessageID  string
	FromLevel  int
	ToLevel    int
	CipherText string
	AIHint     string
}

type LeaveUpdate struct {
	GameID        string
	UserID        string
	RotateTurn    bool
	ExpectedTurn  string
	NextTurn      string
	NewHostID     string
	Complete      bool
	SystemMessage *Message
}

// Quota is one counter checked and bumped by ConsumeHintQuota.
type Quota struct {
	Scope  string
	Key    string
	Period string
	Limit  int
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateGame(ctx context.Context, game *Game) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO games (id, handle, status, mode, host_id, max_messages, created_at)
			VALUES (?, (SELECT COALESCE(MAX(handle), 0) + 1 FROM games), ?, ?, ?, ?, ?)
			RETURNING handle`,
			game.ID, game.Status, game.Mode, game.HostID, game.MaxMessages, millis(game.CreatedAt),
		).Scan(&game.Handle)
		if err != nil {
			return fmt.Errorf("failed to create game: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO game_players (game_id, user_id, joined_at) VALUES (?, ?, ?)",
			game.ID, game.HostID, millis(game.CreatedAt),
		); err != nil {
			return fmt.Errorf("failed to add host: %w", err)
		}
		return nil
	})
}

const gameColumns = `id, handle, status, mode, host_id, current_turn_user_id, max_messages,
	solving_proposal_created_at, solving_started_at, team_pot, team_consecutive_correct,
	fever_mode_remaining, created_at`

func (s *SQLiteStore) GetGame(ctx context.Context, gameID string) (*Game, error) {
	game, err := scanGame(s.db.QueryRowContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE id = ?", gameID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM solve_confirmations WHERE game_id = ? ORDER BY user_id", gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		game.SolveProposalConfirmations = append(game.SolveProposalConfirmations, userID)
	}
	return game, rows.Err()
}

func (s *SQLiteStore) ListGames(ctx context.Context) ([]*Game, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE status NOT IN ('completed', 'archived') ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	var games []*Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func (s *SQLiteStore) ListDueProposals(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM games
		WHERE status IN ('texting', 'active')
		  AND solving_proposal_created_at IS NOT NULL
		  AND solving_proposal_created_at <= ?`, millis(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list due proposals: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) AddPlayer(ctx context.Context, gameID, userID string, joinedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO game_players (game_id, user_id, joined_at) VALUES (?, ?, ?)",
		gameID, userID, millis(joinedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to join game: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetGamePlayers(ctx context.Context, gameID string) ([]*GamePlayer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id, user_id, score, consecutive_correct_guesses, has_left, joined_at
		FROM game_players
		WHERE game_id = ?
		ORDER BY joined_at, rowid
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game players: %w", err)
	}
	defer rows.Close()

	var players []*GamePlayer
	for rows.Next() {
		player := &GamePlayer{}
		var hasLeft int
		var joinedAt int64
		if err := rows.Scan(&player.GameID, &player.UserID, &player.Score, &player.ConsecutiveCorrectGuesses, &hasLeft, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		player.HasLeft = hasLeft == 1
		player.JoinedAt = fromMillis(joinedAt)
		players = append(players, player)
	}
	return players, rows.Err()
}

const messageColumns = `seq, id, game_id, user_id, content, cipher_text, cipher_length, hint_level,
	strikes, is_solved, solved_by, winner_points, author_points, ai_hint, type, idempotency_key, created_at`

func (s *SQLiteStore) GetMessages(ctx context.Context, gameID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? ORDER BY seq", gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) GetMessageByIdempotencyKey(ctx context.Context, gameID, key string) (*Message, error) {
	msg, err := scanMessage(s.db.QueryRowContext(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE game_id = ? AND idempotency_key = ?",
		gameID, key,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

func (s *SQLiteStore) StartGame(ctx context.Context, gameID, firstTurn string) error {
	return s.execCAS(ctx, s.db,
		"UPDATE games SET status = 'texting', current_turn_user_id = ? WHERE id = ? AND status = 'lobby'",
		firstTurn, gameID,
	)
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message, expectedTurn, nextTurn string, proposalAt *time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE games
			SET current_turn_user_id = ?, solving_proposal_created_at = ?
			WHERE id = ? AND current_turn_user_id = ?
			  AND status IN ('texting', 'active')
			  AND solving_proposal_created_at IS NULL`,
			nextTurn, nullMillis(proposalAt), msg.GameID, expectedTurn,
		); err != nil {
			return err
		}

		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}

		if proposalAt != nil {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO solve_confirmations (game_id, user_id) VALUES (?, ?)",
				msg.GameID, msg.UserID,
			); err != nil {
				return fmt.Errorf("failed to seed confirmations: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLiteStore) OpenProposal(ctx context.Context, gameID, proposerID string, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE games SET solving_proposal_created_at = ?
			WHERE id = ? AND status IN ('texting', 'active') AND solving_proposal_created_at IS NULL`,
			millis(at), gameID,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM solve_confirmations WHERE game_id = ?", gameID); err != nil {
			return fmt.Errorf("failed to reset confirmations: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO solve_confirmations (game_id, user_id) VALUES (?, ?)", gameID, proposerID,
		); err != nil {
			return fmt.Errorf("failed to seed confirmations: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) ClearProposal(ctx context.Context, gameID string, openedAfter time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE games SET solving_proposal_created_at = NULL
			WHERE id = ? AND status IN ('texting', 'active') AND solving_proposal_created_at > ?`,
			gameID, millis(openedAfter),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM solve_confirmations WHERE game_id = ?", gameID); err != nil {
			return fmt.Errorf("failed to clear confirmations: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) AddConfirmation(ctx context.Context, gameID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO solve_confirmations (game_id, user_id)
		SELECT id, ? FROM games
		WHERE id = ? AND status IN ('texting', 'active') AND solving_proposal_created_at IS NOT NULL`,
		userID, gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to add confirmation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinalizeProposal(ctx context.Context, gameID string, openedBefore, startedAt time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE games
			SET status = 'solving', solving_started_at = ?, solving_proposal_created_at = NULL
			WHERE id = ? AND status IN ('texting', 'active')
			  AND solving_proposal_created_at IS NOT NULL
			  AND solving_proposal_created_at <= ?`,
			millis(startedAt), gameID, millis(openedBefore),
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM solve_confirmations WHERE game_id = ?", gameID); err != nil {
			return fmt.Errorf("failed to clear confirmations: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) CompleteGame(ctx context.Context, gameID string) error {
	return s.execCAS(ctx, s.db, `
		UPDATE games
		SET status = 'completed', solving_started_at = NULL, solving_proposal_created_at = NULL
		WHERE id = ? AND status IN ('texting', 'active', 'solving')`,
		gameID,
	)
}

func (s *SQLiteStore) ResolveSolve(ctx context.Context, u *SolveUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE messages
			SET is_solved = 1, solved_by = ?, winner_points = ?, author_points = ?
			WHERE id = ? AND game_id = ? AND is_solved = 0 AND hint_level = ?`,
			u.GuesserID, u.WinnerPoints, u.AuthorPoints, u.MessageID, u.GameID, u.ExpectedHintLevel,
		); err != nil {
			return err
		}

		if err := s.execCAS(ctx, tx, `
			UPDATE game_players
			SET score = score + ?, consecutive_correct_guesses = ?
			WHERE game_id = ? AND user_id = ? AND consecutive_correct_guesses = ?`,
			u.WinnerPoints, u.GuesserConsecutive, u.GameID, u.GuesserID, u.ExpectedGuesserConsecutive,
		); err != nil {
			return err
		}

		if u.AuthorPoints > 0 {
			if _, err := tx.ExecContext(ctx,
				"UPDATE game_players SET score = score + ? WHERE game_id = ? AND user_id = ?",
				u.AuthorPoints, u.GameID, u.AuthorID,
			); err != nil {
				return fmt.Errorf("failed to credit author: %w", err)
			}
		}

		status, startedAt := "solving", nullMillis(&u.SolvingStartedAt)
		if u.Complete {
			status, startedAt = "completed", sql.NullInt64{}
		}
		return s.execCAS(ctx, tx, `
			UPDATE games
			SET team_pot = team_pot + ?, team_consecutive_correct = ?, fever_mode_remaining = ?,
			    status = ?, solving_started_at = ?
			WHERE id = ? AND status = 'solving'
			  AND team_consecutive_correct = ? AND fever_mode_remaining = ?`,
			u.PotIncrease, u.TeamConsecutive, u.FeverRemaining, status, startedAt,
			u.GameID, u.ExpectedTeam[0], u.ExpectedTeam[1],
		)
	})
}

func (s *SQLiteStore) RecordStrike(ctx context.Context, u *StrikeUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx, `
			UPDATE messages SET strikes = strikes + 1, is_solved = ?
			WHERE id = ? AND game_id = ? AND is_solved = 0 AND strikes = ?`,
			boolInt(u.Lost), u.MessageID, u.GameID, u.ExpectedStrikes,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE game_players SET consecutive_correct_guesses = 0 WHERE game_id = ? AND user_id = ?",
			u.GameID, u.GuesserID,
		); err != nil {
			return fmt.Errorf("failed to reset streak: %w", err)
		}

		switch {
		case u.Complete:
			return s.execCAS(ctx, tx, `
				UPDATE games
				SET team_consecutive_correct = 0, fever_mode_remaining = 0,
				    status = 'completed', solving_started_at = NULL
				WHERE id = ? AND status = 'solving'`, u.GameID)
		case u.Lost:
			return s.execCAS(ctx, tx, `
				UPDATE games
				SET team_consecutive_correct = 0, fever_mode_remaining = 0, solving_started_at = ?
				WHERE id = ? AND status = 'solving'`, millis(u.SolvingStartedAt), u.GameID)
		default:
			return s.execCAS(ctx, tx, `
				UPDATE games SET team_consecutive_correct = 0, fever_mode_remaining = 0
				WHERE id = ? AND status = 'solving'`, u.GameID)
		}
	})
}

func (s *SQLiteStore) AdvanceHint(ctx context.Context, u *HintUpdate) error {
	return s.execCAS(ctx, s.db, `
		UPDATE messages
		SET hint_level = ?, cipher_text = ?, ai_hint = COALESCE(NULLIF(?, ''), ai_hint)
		WHERE id = ? AND is_solved = 0 AND hint_level = ?`,
		u.ToLevel, u.CipherText, u.AIHint, u.MessageID, u.FromLevel,
	)
}

func (s *SQLiteStore) LeaveGame(ctx context.Context, u *LeaveUpdate) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.execCAS(ctx, tx,
			"UPDATE game_players SET has_left = 1 WHERE game_id = ? AND user_id = ? AND has_left = 0",
			u.GameID, u.UserID,
		); err != nil {
			return err
		}

		if u.NewHostID != "" {
			if err := s.execCAS(ctx, tx,
				"UPDATE games SET host_id = ? WHERE id = ? AND host_id = ?",
				u.NewHostID, u.GameID, u.UserID,
			); err != nil {
				return err
			}
		}

		if u.RotateTurn {
			if err := s.execCAS(ctx, tx,
				"UPDATE games SET current_turn_user_id = ? WHERE id = ? AND current_turn_user_id = ?",
				u.NextTurn, u.GameID, u.ExpectedTurn,
			); err != nil {
				return err
			}
		}

		if u.Complete {
			if _, err := tx.ExecContext(ctx, `
				UPDATE games
				SET status = 'completed', solving_started_at = NULL, solving_proposal_created_at = NULL
				WHERE id = ? AND status IN ('lobby', 'texting', 'active', 'solving')`, u.GameID,
			); err != nil {
				return fmt.Errorf("failed to complete game: %w", err)
			}
		}

		if u.SystemMessage != nil {
			return insertMessage(ctx, tx, u.SystemMessage)
		}
		return nil
	})
}

// ConsumeHintQuota bumps every counter or none. Returns the scope of the
// first counter already at its limit.
func (s *SQLiteStore) ConsumeHintQuota(ctx context.Context, quotas []Quota) (string, error) {
	exceeded := ""
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range quotas {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO hint_usage (scope, key, period, count) VALUES (?, ?, ?, 1)
				ON CONFLICT (scope, key, period) DO UPDATE SET count = count + 1
				WHERE hint_usage.count < ?`,
				q.Scope, q.Key, q.Period, q.Limit,
			)
			if err != nil {
				return fmt.Errorf("failed to bump hint usage: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if n == 0 || q.Limit <= 0 {
				exceeded = q.Scope
				return ErrConflict
			}
		}
		return nil
	})
	if exceeded != "" {
		return exceeded, nil
	}
	return "", err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) execCAS(ctx context.Context, ex execer, query string, args ...any) error {
	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, msg *Message) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, game_id, user_id, content, cipher_text, cipher_length, hint_level,
			strikes, is_solved, type, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`,
		msg.ID, msg.GameID, msg.UserID, msg.Content, msg.CipherText, msg.CipherLength, msg.HintLevel,
		msg.Strikes, boolInt(msg.IsSolved), msg.Type, nullString(msg.IdempotencyKey), millis(msg.CreatedAt),
	).Scan(&msg.Seq)
	if err != nil {
		// A unique idempotency key means a retry already landed.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("failed to insert message: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*Game, error) {
	game := &Game{}
	var currentTurn sql.NullString
	var proposal, started sql.NullInt64
	var createdAt int64
	err := row.Scan(&game.ID, &game.Handle, &game.Status, &game.Mode, &game.HostID, &currentTurn,
		&game.MaxMessages, &proposal, &started, &game.TeamPot, &game.TeamConsecutiveCorrect,
		&game.FeverModeRemaining, &createdAt)
	if err != nil {
		return nil, err
	}
	game.CurrentTurnUserID = currentTurn.String
	game.SolvingProposalCreatedAt = timePtr(proposal)
	game.SolvingStartedAt = timePtr(started)
	game.CreatedAt = fromMillis(createdAt)
	return game, nil
}

func scanMessage(row scanner) (*Message, error) {
	msg := &Message{}
	var isSolved int
	var solvedBy, aiHint, idemKey sql.NullString
	var createdAt int64
	err := row.Scan(&msg.Seq, &msg.ID, &msg.GameID, &msg.UserID, &msg.Content, &msg.CipherText,
		&msg.CipherLength, &msg.HintLevel, &msg.Strikes, &isSolved, &solvedBy, &msg.WinnerPoints,
		&msg.AuthorPoints, &aiHint, &msg.Type, &idemKey, &createdAt)
	if err != nil {
		return nil, err
	}
	msg.IsSolved = isSolved == 1
	msg.SolvedBy = solvedBy.String
	msg.AIHint = aiHint.String
	msg.IdempotencyKey = idemKey.String
	msg.CreatedAt = fromMillis(createdAt)
	return msg, nil
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
