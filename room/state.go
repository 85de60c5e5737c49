package room

import "fmt"

// State is the room-level lifecycle state.
type State int

const (
	Waiting State = iota
	Betting
	Playing
	DealerTurn
	GameOver
)

// String returns the protocol string for a State.
func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Betting:
		return "betting"
	case Playing:
		return "playing"
	case DealerTurn:
		return "dealer_turn"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its protocol string.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a protocol string.
func (s *State) UnmarshalText(b []byte) error {
	for c := Waiting; c <= GameOver; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown room state %q", b)
}

// ParticipantState is a participant's position within the current round.
type ParticipantState int

const (
	PWaiting ParticipantState = iota
	PReady
	PBetting
	PPlaying
	PStand
	PBusted
	PBlackjack
	PFiveCardWin
	PSpectating
)

// String returns the protocol string for a ParticipantState.
func (s ParticipantState) String() string {
	switch s {
	case PWaiting:
		return "waiting"
	case PReady:
		return "ready"
	case PBetting:
		return "betting"
	case PPlaying:
		return "playing"
	case PStand:
		return "stand"
	case PBusted:
		return "busted"
	case PBlackjack:
		return "blackjack"
	case PFiveCardWin:
		return "five_card_win"
	case PSpectating:
		return "spectating"
	default:
		return "unknown"
	}
}

// MarshalText renders the state as its protocol string.
func (s ParticipantState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a protocol string.
func (s *ParticipantState) UnmarshalText(b []byte) error {
	for c := PWaiting; c <= PSpectating; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown participant state %q", b)
}

// Terminal reports whether the participant has finished acting this round.
func (s ParticipantState) Terminal() bool {
	switch s {
	case PStand, PBusted, PBlackjack, PFiveCardWin:
		return true
	default:
		return false
	}
}

// Outcome is a participant's settled result for a round.
type Outcome int

const (
	NoOutcome Outcome = iota
	Win
	Lose
	Push
	BlackjackWin
	FiveCardWin
)

// String returns the protocol string for an Outcome.
func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Lose:
		return "lose"
	case Push:
		return "push"
	case BlackjackWin:
		return "blackjack"
	case FiveCardWin:
		return "five_card_win"
	default:
		return ""
	}
}

// MarshalText renders the outcome as its protocol string.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses a protocol string.
func (o *Outcome) UnmarshalText(b []byte) error {
	for c := NoOutcome; c <= FiveCardWin; c++ {
		if c.String() == string(b) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", b)
}
