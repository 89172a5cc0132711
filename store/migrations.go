package store

// Timestamps are unix milliseconds so deadline comparisons stay in SQL.
const schema = `
CREATE TABLE IF NOT EXISTS games (
    id TEXT PRIMARY KEY,
    handle INTEGER UNIQUE NOT NULL,
    status TEXT NOT NULL DEFAULT 'lobby',
    mode TEXT NOT NULL DEFAULT 'classic',
    host_id TEXT NOT NULL,
    current_turn_user_id TEXT,
    max_messages INTEGER NOT NULL DEFAULT 10,
    solving_proposal_created_at INTEGER,
    solving_started_at INTEGER,
    team_pot INTEGER NOT NULL DEFAULT 0,
    team_consecutive_correct INTEGER NOT NULL DEFAULT 0,
    fever_mode_remaining INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_players (
    game_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    consecutive_correct_guesses INTEGER NOT NULL DEFAULT 0,
    has_left INTEGER NOT NULL DEFAULT 0,
    joined_at INTEGER NOT NULL,
    PRIMARY KEY (game_id, user_id),
    FOREIGN KEY (game_id) REFERENCES games(id)
);

CREATE TABLE IF NOT EXISTS messages (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    game_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    cipher_text TEXT NOT NULL,
    cipher_length INTEGER NOT NULL,
    hint_level INTEGER NOT NULL DEFAULT 0,
    strikes INTEGER NOT NULL DEFAULT 0,
    is_solved INTEGER NOT NULL DEFAULT 0,
    solved_by TEXT,
    winner_points INTEGER NOT NULL DEFAULT 0,
    author_points INTEGER NOT NULL DEFAULT 0,
    ai_hint TEXT,
    type TEXT NOT NULL DEFAULT 'text',
    idempotency_key TEXT,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (game_id) REFERENCES games(id)
);

CREATE TABLE IF NOT EXISTS solve_confirmations (
    game_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    PRIMARY KEY (game_id, user_id)
);

CREATE TABLE IF NOT EXISTS hint_usage (
    scope TEXT NOT NULL,
    key TEXT NOT NULL,
    period TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (scope, key, period)
);

CREATE INDEX IF NOT EXISTS idx_games_status ON games(status);
CREATE INDEX IF NOT EXISTS idx_game_players_game_id ON game_players(game_id);
CREATE INDEX IF NOT EXISTS idx_messages_game_id ON messages(game_id, seq);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_idempotency ON messages(game_id, idempotency_key);
`
