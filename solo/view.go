package solo

import (
	"blackjack-server/cards"
)

var hiddenCard = cards.Card{Suit: "?", Rank: "?"}

// Snapshot is the single-player state returned by every call.
type Snapshot struct {
	GameState        State      `json:"game_state"`
	PlayerMoney      int        `json:"player_money"`
	CurrentBet       int        `json:"current_bet"`
	Message          string     `json:"message"`
	PlayerHand       cards.Hand `json:"player_hand"`
	PlayerScore      int        `json:"player_score"`
	DealerHand       cards.Hand `json:"dealer_hand"`
	DealerScore      int        `json:"dealer_score"`
	DealerDifficulty string     `json:"dealer_difficulty"`
	CanDouble        bool       `json:"can_double"`
	CanSplit         bool       `json:"can_split"`
	SecondHand       cards.Hand `json:"second_hand,omitempty"`
	SecondHandScore  int        `json:"second_hand_score,omitempty"`
	SecondBet        int        `json:"second_bet,omitempty"`
	Results          []string   `json:"results,omitempty"`
}

// State returns the table as the player may see it. The dealer's hole card
// stays hidden while a hand is in play.
func (t *Table) State() Snapshot {
	s := Snapshot{
		GameState:        t.phase,
		PlayerMoney:      t.balance,
		CurrentBet:       t.bet,
		Message:          t.message,
		PlayerHand:       t.hand.Clone(),
		PlayerScore:      t.hand.Score(),
		DealerDifficulty: t.difficulty.String(),
		Results:          append([]string(nil), t.results...),
	}
	if s.PlayerHand == nil {
		s.PlayerHand = cards.Hand{}
	}
	if t.phase.acting() && len(t.house) > 1 {
		s.DealerHand = cards.Hand{t.house[0], hiddenCard}
		s.DealerScore = cards.Hand{t.house[0]}.Score()
	} else {
		s.DealerHand = t.house.Clone()
		s.DealerScore = t.house.Score()
	}
	if s.DealerHand == nil {
		s.DealerHand = cards.Hand{}
	}
	if t.phase == PlayerTurn {
		s.CanDouble = len(t.hand) == 2 && t.balance >= t.bet
		s.CanSplit = t.hand.CanSplit() && t.balance >= t.bet
	}
	if t.second != nil {
		s.SecondHand = t.second.Clone()
		s.SecondHandScore = t.second.Score()
		s.SecondBet = t.secondBet
	}
	return s
}
