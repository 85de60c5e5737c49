package room

import (
	"blackjack-server/cards"
)

// hiddenCard replaces the dealer's hole card while players are still acting.
var hiddenCard = cards.Card{Suit: "?", Rank: "?"}

// ParticipantView is the client-facing representation of a participant.
type ParticipantView struct {
	PlayerID       string           `json:"player_id"`
	Name           string           `json:"name"`
	Hand           cards.Hand       `json:"hand"`
	Score          int              `json:"score"`
	Money          int              `json:"money"`
	CurrentBet     int              `json:"current_bet"`
	State          ParticipantState `json:"state"`
	IsAI           bool             `json:"is_ai"`
	AIDifficulty   string           `json:"ai_difficulty,omitempty"`
	IsDisconnected bool             `json:"is_disconnected"`
	Outcome        Outcome          `json:"outcome,omitempty"`
	Net            int              `json:"net"`
}

// DealerView is the dealer's hand as an observer may see it.
type DealerView struct {
	Hand   cards.Hand `json:"hand"`
	Score  int        `json:"score"`
	Hidden bool       `json:"hidden"`
}

// Snapshot is the full room state sent to one observer.
type Snapshot struct {
	Type               string            `json:"type"`
	RoomID             string            `json:"room_id"`
	RoomName           string            `json:"room_name"`
	GameState          State             `json:"game_state"`
	Message            string            `json:"message"`
	Round              int               `json:"round"`
	CurrentPlayerIndex int               `json:"current_player_index"`
	CurrentPlayerID    string            `json:"current_player_id,omitempty"`
	PlayerOrder        []string          `json:"player_order"`
	Players            []ParticipantView `json:"players"`
	Dealer             DealerView        `json:"dealer"`
	You                string            `json:"you,omitempty"`
}

// Player returns the view of one participant, if present.
func (s Snapshot) Player(id string) (ParticipantView, bool) {
	for _, p := range s.Players {
		if p.PlayerID == id {
			return p, true
		}
	}
	return ParticipantView{}, false
}

// Summary is the registry-level description of a room.
type Summary struct {
	RoomID      string `json:"room_id"`
	RoomName    string `json:"room_name"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	GameState   State  `json:"game_state"`

	// Humans counts non-AI participants, including those inside their reconnection window.
	Humans int `json:"-"`
}

// PlayerJoinedMsg announces a new participant to the other occupants.
type PlayerJoinedMsg struct {
	Type   string          `json:"type"`
	Player ParticipantView `json:"player"`
}

// PlayerLeftMsg announces a departure. The leaver receives it too.
type PlayerLeftMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// StatusUpdateMsg reports a readiness or connection change.
type StatusUpdateMsg struct {
	Type        string `json:"type"`
	PlayerID    string `json:"player_id"`
	PlayerState string `json:"player_state"`
}

// NotificationMsg carries a free-form notice for every occupant.
type NotificationMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func participantView(p *Participant) ParticipantView {
	hand := p.Hand.Clone()
	if hand == nil {
		hand = cards.Hand{}
	}
	v := ParticipantView{
		PlayerID:       p.ID,
		Name:           p.Name,
		Hand:           hand,
		Score:          p.Hand.Score(),
		Money:          p.Balance,
		CurrentBet:     p.Bet,
		State:          p.State,
		IsAI:           p.IsAI,
		IsDisconnected: !p.Connected,
		Outcome:        p.Outcome,
		Net:            p.Net,
	}
	if p.IsAI {
		v.AIDifficulty = p.Difficulty.String()
	}
	return v
}

// dealerView hides the hole card while the room is in the playing phase.
// The score then reflects the up card only.
func dealerView(hand cards.Hand, state State) DealerView {
	if state == Playing && len(hand) >= 2 {
		shown := make(cards.Hand, len(hand))
		copy(shown, hand)
		shown[1] = hiddenCard
		return DealerView{Hand: shown, Score: hand[:1].Score(), Hidden: true}
	}
	shown := hand.Clone()
	if shown == nil {
		shown = cards.Hand{}
	}
	return DealerView{Hand: shown, Score: hand.Score()}
}
