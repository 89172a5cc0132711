package game

import (
	"errors"
	"fmt"
)

// Kind classifies why an action was rejected.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindRateLimit     Kind = "rate_limit"
	KindDependency    Kind = "dependency"
)

// Rate limit scopes for tier-3 hints.
const (
	ScopePlayerGame = "player_game"
	ScopeIPDay      = "ip_day"
)

// Error is a rejected action. None of these end the game session; the caller
// reports them and the player may retry.
type Error struct {
	Kind   Kind
	Reason string
	Scope  string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and reason so wrapped copies still
// compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason && e.Scope == t.Scope
}

func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

var (
	ErrEmptyContent     = newError(KindValidation, "message is empty")
	ErrTooManyWords     = newError(KindValidation, "message must be 1 to 3 words")
	ErrContentTooLong   = newError(KindValidation, "message must be at most 25 characters")
	ErrDuplicateContent = newError(KindValidation, "that word was already used in this game")
	ErrEmptyGuess       = newError(KindValidation, "guess is empty")
	ErrMaxHintLevel     = newError(KindValidation, "no more hints for this message")
	ErrInvalidAction    = newError(KindValidation, "unknown action")

	ErrNotYourTurn    = newError(KindAuthorization, "not your turn")
	ErrWrongPhase     = newError(KindAuthorization, "action not allowed in this phase")
	ErrUserNotInGame  = newError(KindAuthorization, "user not in game")
	ErrPlayerLeft     = newError(KindAuthorization, "player has left the game")
	ErrNotTargetOwner = newError(KindAuthorization, "wait for the author's turn to end")
	ErrNotHost        = newError(KindAuthorization, "only the host can start the game")

	ErrGameNotFound      = newError(KindConflict, "game not found")
	ErrAlreadyInGame     = newError(KindConflict, "already in game")
	ErrAlreadySolved     = newError(KindConflict, "message already resolved")
	ErrNotActiveTarget   = newError(KindConflict, "message is not the current target")
	ErrProposalOpen      = newError(KindConflict, "a solve proposal is already open")
	ErrNoProposal        = newError(KindConflict, "no solve proposal is open")
	ErrProposalFinalized = newError(KindConflict, "proposal already finalized")
	ErrStaleState        = newError(KindConflict, "game changed, refresh and retry")

	ErrHintLimitPlayer = &Error{Kind: KindRateLimit, Reason: "AI hint limit reached for this game", Scope: ScopePlayerGame}
	ErrHintLimitIP     = &Error{Kind: KindRateLimit, Reason: "daily AI hint limit reached", Scope: ScopeIPDay}
)

// KindOf classifies err. Anything that is not an *Error is a dependency
// failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDependency
}

func dependency(reason string, err error) error {
	return &Error{Kind: KindDependency, Reason: reason, Err: err}
}
