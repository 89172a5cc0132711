package game

import "context"

// Inbound action names.
const (
	ActionProposeSolve = "propose_solve"
	ActionDenySolve    = "deny_solve"
	ActionConfirmSolve = "confirm_solve"
	ActionSolveAttempt = "solve_attempt"
	ActionGetHint      = "get_hint"
	ActionSendMessage  = "send_message"
	ActionLeaveGame    = "leave_game"
	ActionStartGame    = "start_game"
)

// Action is one player request, as decoded by a transport.
type Action struct {
	Type           string `json:"type"`
	GameID         string `json:"gameId"`
	UserID         string `json:"-"`
	IP             string `json:"-"`
	TargetID       string `json:"targetId,omitempty"`
	GuessText      string `json:"guessText,omitempty"`
	Content        string `json:"content,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Apply routes an action to the matching engine operation.
func (e *Engine) Apply(ctx context.Context, a *Action) (*Result, error) {
	switch a.Type {
	case ActionSendMessage:
		return e.SendMessage(ctx, a.GameID, a.UserID, a.Content, a.IdempotencyKey)
	case ActionProposeSolve:
		return e.ProposeSolve(ctx, a.GameID, a.UserID)
	case ActionDenySolve:
		return e.DenySolve(ctx, a.GameID, a.UserID)
	case ActionConfirmSolve:
		return e.ConfirmSolve(ctx, a.GameID, a.UserID)
	case ActionSolveAttempt:
		return e.SolveAttempt(ctx, a.GameID, a.UserID, a.TargetID, a.GuessText)
	case ActionGetHint:
		return e.GetHint(ctx, a.GameID, a.UserID, a.TargetID, a.IP)
	case ActionLeaveGame:
		return e.LeaveGame(ctx, a.GameID, a.UserID)
	case ActionStartGame:
		return e.StartGame(ctx, a.GameID, a.UserID)
	default:
		return nil, ErrInvalidAction
	}
}
