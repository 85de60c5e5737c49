// Package gameerrors holds the error taxonomy shared by the room, lobby,
// session and single-player packages. Kept separate to avoid import cycles
// between those packages and the ws/api layers that map errors to replies.
package gameerrors

import "fmt"

// Kind classifies an error by how the caller should treat it.
type Kind int

const (
	// KindValidation is malformed or out-of-range input (bad bet, bad name).
	KindValidation Kind = iota
	// KindState is an action that is not legal in the current room or participant state.
	KindState
	// KindNotFound is an unknown room, participant or session.
	KindNotFound
	// KindExhausted is a depleted resource (deck, seats). Fatal to the action only.
	KindExhausted
)

// String returns the name of a Kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Error is a player-facing error: one descriptive message plus its Kind.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the bare sentinel for e's Kind (ErrValidation,
// ErrState, ...). Specific sentinels such as ErrNotYourTurn match by identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Kind-level sentinels for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrState      = &Error{Kind: KindState}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrExhausted  = &Error{Kind: KindExhausted}
)

// Specific sentinels.
var (
	ErrRoomNotFound        = &Error{Kind: KindNotFound, Message: "Room does not exist"}
	ErrRoomClosed          = &Error{Kind: KindNotFound, Message: "Room has been closed"}
	ErrPlayerNotInRoom     = &Error{Kind: KindNotFound, Message: "Player is not in the room"}
	ErrUnknownSession      = &Error{Kind: KindNotFound, Message: "Unknown session"}
	ErrRoomFull            = &Error{Kind: KindExhausted, Message: "Room is full"}
	ErrDeckExhausted       = &Error{Kind: KindExhausted, Message: "Deck is exhausted"}
	ErrNotYourTurn         = &Error{Kind: KindState, Message: "It is not your turn"}
	ErrGameNotOver         = &Error{Kind: KindState, Message: "The game is not over yet"}
	ErrBetNotPositive      = &Error{Kind: KindValidation, Message: "Bet amount must be positive"}
	ErrInsufficientBalance = &Error{Kind: KindValidation, Message: "Insufficient balance"}
)

// Validation returns a KindValidation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// State returns a KindState error with a formatted message.
func State(format string, args ...any) *Error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}
