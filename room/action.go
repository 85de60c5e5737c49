package room

import "blackjack-server/dealer"

// ActionType enumerates the kinds of actions a room can process.
type ActionType int

const (
	ActionJoin ActionType = iota
	ActionLeave
	ActionReady
	ActionBet
	ActionHit
	ActionStand
	ActionDoubleDown
	ActionNextRound
	ActionDisconnected     // connection lost; start the reconnection window
	ActionReconnected      // connection restored; rebind Send and resend room data
	ActionReconnectTimeout // internal: reconnection window expired
	ActionTurnTimeout      // internal: turn time limit reached, auto-stand
	ActionAutoNextRound    // internal: game_over grace elapsed
	ActionView             // read-only: build a snapshot for one viewer
)

func (t ActionType) String() string {
	switch t {
	case ActionJoin:
		return "join"
	case ActionLeave:
		return "leave"
	case ActionReady:
		return "ready"
	case ActionBet:
		return "bet"
	case ActionHit:
		return "hit"
	case ActionStand:
		return "stand"
	case ActionDoubleDown:
		return "double_down"
	case ActionNextRound:
		return "next_round"
	case ActionDisconnected:
		return "disconnected"
	case ActionReconnected:
		return "reconnected"
	case ActionReconnectTimeout:
		return "reconnect_timeout"
	case ActionTurnTimeout:
		return "turn_timeout"
	case ActionAutoNextRound:
		return "auto_next_round"
	case ActionView:
		return "view"
	default:
		return "unknown"
	}
}

// Action is one message sent into a room's action channel.
type Action struct {
	Type     ActionType
	PlayerID string

	Name       string            // Join
	IsAI       bool              // Join
	Difficulty dealer.Difficulty // Join, AI participants only
	Send       chan []byte       // Join, Reconnected, Disconnected
	Amount     int               // Bet

	// Epoch identifies the timer generation an internal action was scheduled for.
	Epoch int

	reply chan error
	view  chan Snapshot
}

// JoinRequest describes a participant entering a room.
type JoinRequest struct {
	PlayerID   string
	Name       string
	Send       chan []byte
	IsAI       bool
	Difficulty dealer.Difficulty
}

// Action converts the request to a Join action.
func (j JoinRequest) Action() Action {
	return Action{
		Type:       ActionJoin,
		PlayerID:   j.PlayerID,
		Name:       j.Name,
		Send:       j.Send,
		IsAI:       j.IsAI,
		Difficulty: j.Difficulty,
	}
}
