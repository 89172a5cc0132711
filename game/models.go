package game

import "time"

const (
	StatusLobby     = "lobby"
	StatusTexting   = "texting"
	StatusActive    = "active" // legacy alias of texting
	StatusSolving   = "solving"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
)

const (
	MessageTypeText   = "text"
	MessageTypeSystem = "system"
)

const (
	ProposalWindow      = 10 * time.Second
	SolvingModeDuration = 10 * time.Second
	MaxStrikes          = 3
	MaxWords            = 3
	MaxContentLength    = 25
	DefaultMaxMessages  = 10
	replayWindow        = 5 * time.Second
)

// IsTexting reports whether status takes turns sending messages.
func IsTexting(status string) bool {
	return status == StatusTexting || status == StatusActive
}

type Player struct {
	UserID                    string    `json:"userId"`
	Score                     int       `json:"score"`
	ConsecutiveCorrectGuesses int       `json:"consecutiveCorrectGuesses"`
	HasLeft                   bool      `json:"hasLeft"`
	JoinedAt                  time.Time `json:"joinedAt"`
	IsCurrentTurn             bool      `json:"isCurrentTurn"`
}

// MessageView is a message as a given viewer may see it. Content stays empty
// until the message is solved, except for its author.
type MessageView struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Type         string `json:"type"`
	Content      string `json:"content,omitempty"`
	CipherText   string `json:"cipherText"`
	CipherLength int    `json:"cipherLength"`
	HintLevel    int    `json:"hintLevel"`
	Strikes      int    `json:"strikes"`
	IsSolved     bool   `json:"isSolved"`
	SolvedBy     string `json:"solvedBy,omitempty"`
	WinnerPoints int    `json:"winnerPoints"`
	AuthorPoints int    `json:"authorPoints"`
	AIHint       string `json:"aiHint,omitempty"`
	Value        int    `json:"value"`
}

type GameState struct {
	ID                string         `json:"id"`
	Handle            int64          `json:"handle"`
	Status            string         `json:"status"`
	Mode              string         `json:"mode"`
	HostID            string         `json:"hostId"`
	CurrentTurnUserID string         `json:"currentTurnUserId,omitempty"`
	MaxMessages       int            `json:"maxMessages"`
	Players           []*Player      `json:"players"`
	Messages          []*MessageView `json:"messages"`
	ProposalDeadline  *time.Time     `json:"proposalDeadline,omitempty"`
	Confirmations     []string       `json:"confirmations,omitempty"`
	SolvingStartedAt  *time.Time     `json:"solvingStartedAt,omitempty"`
	FreeForAllAt      *time.Time     `json:"freeForAllAt,omitempty"`
	ActiveTargetID    string         `json:"activeTargetId,omitempty"`
	TeamPot           int            `json:"teamPot"`
	Team              TeamState      `json:"team"`
}

type Event struct {
	Type    string      `json:"type"`
	GameID  string      `json:"gameId"`
	Payload interface{} `json:"payload"`
}

const (
	EventPlayerJoined    = "player_joined"
	EventGameStarted     = "game_started"
	EventMessageSent     = "message_sent"
	EventTurnChanged     = "turn_changed"
	EventProposalOpened  = "solve_proposed"
	EventProposalDenied  = "solve_denied"
	EventProposalConfirm = "solve_confirmed"
	EventSolvingStarted  = "solving_started"
	EventMessageSolved   = "message_solved"
	EventStrike          = "message_strike"
	EventMessageLost     = "message_lost"
	EventHintRevealed    = "hint_revealed"
	EventPlayerLeft      = "player_left"
	EventGameCompleted   = "game_completed"
	EventTargetChanged   = "target_changed"
)

type PlayerJoinedPayload struct {
	Player *Player `json:"player"`
}

type GameStartedPayload struct {
	CurrentPlayerID string `json:"currentPlayerId"`
}

type TurnChangedPayload struct {
	PreviousPlayerID string `json:"previousPlayerId"`
	CurrentPlayerID  string `json:"currentPlayerId"`
}

type MessageSentPayload struct {
	Message *MessageView `json:"message"`
}

type ProposalPayload struct {
	UserID        string    `json:"userId"`
	Deadline      time.Time `json:"deadline,omitempty"`
	Confirmations []string  `json:"confirmations,omitempty"`
}

type SolvingStartedPayload struct {
	SolvingStartedAt time.Time `json:"solvingStartedAt"`
	ActiveTargetID   string    `json:"activeTargetId,omitempty"`
}

type SolvedPayload struct {
	MessageID    string       `json:"messageId"`
	Content      string       `json:"content"`
	SolvedBy     string       `json:"solvedBy"`
	Distribution Distribution `json:"distribution"`
	Multiplier   float64      `json:"multiplier"`
	FeverApplied bool         `json:"feverApplied"`
	Team         TeamState    `json:"team"`
}

type StrikePayload struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	Strikes   int    `json:"strikes"`
	Lost      bool   `json:"lost"`
	Content   string `json:"content,omitempty"`
}

type HintPayload struct {
	MessageID  string `json:"messageId"`
	HintLevel  int    `json:"hintLevel"`
	CipherText string `json:"cipherText"`
	AIHint     string `json:"aiHint,omitempty"`
}

type PlayerLeftPayload struct {
	UserID          string `json:"userId"`
	CurrentPlayerID string `json:"currentPlayerId,omitempty"`
	HostID          string `json:"hostId,omitempty"`
}

type TargetPayload struct {
	ActiveTargetID   string    `json:"activeTargetId"`
	SolvingStartedAt time.Time `json:"solvingStartedAt"`
}

type CompletedPayload struct {
	Players []*Player `json:"players"`
	TeamPot int       `json:"teamPot"`
}
