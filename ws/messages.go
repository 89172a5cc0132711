package ws

type IncomingMessage struct {
	Type           string `json:"type"`
	RequestID      string `json:"requestId,omitempty"`
	TargetID       string `json:"targetId,omitempty"`
	GuessText      string `json:"guessText,omitempty"`
	Content        string `json:"content,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

type OutgoingMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId,omitempty"`
	Payload   interface{} `json:"payload"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Scope   string `json:"scope,omitempty"`
}

// Reply types sent only to the acting client.
const (
	TypeAck      = "ack"
	TypeError    = "error"
	TypeWarning  = "warning"
	TypeConflict = "conflict"
)

// LobbyChannel is the room that receives game list updates.
const LobbyChannel = "lobby"
