package room

import (
	"blackjack-server/cards"
	"blackjack-server/dealer"
)

// Participant is one seat at a room's table.
type Participant struct {
	ID      string
	Name    string
	Balance int
	Bet     int
	Hand    cards.Hand
	State   ParticipantState

	// Connected is false while the reconnection window is open.
	Connected bool
	Send      chan []byte // reference to the client's send channel; nil while disconnected

	IsAI       bool
	Difficulty dealer.Difficulty

	// Outcome and Net describe the last settled round; cleared on next round.
	Outcome Outcome
	Net     int

	graceEpoch  int
	cancelGrace func()
}

func newParticipant(req JoinRequest, balance int) *Participant {
	return &Participant{
		ID:         req.PlayerID,
		Name:       req.Name,
		Balance:    balance,
		State:      PWaiting,
		Connected:  true,
		Send:       req.Send,
		IsAI:       req.IsAI,
		Difficulty: req.Difficulty,
	}
}

// resetRound clears per-round fields. Participants who cannot cover the
// minimum bet sit out as spectators.
func (p *Participant) resetRound(minBet int) {
	p.Hand = nil
	p.Bet = 0
	p.Outcome = NoOutcome
	p.Net = 0
	if p.Balance < minBet || p.Balance <= 0 {
		p.State = PSpectating
		return
	}
	p.State = PWaiting
}

func (p *Participant) stopGraceTimer() {
	if p.cancelGrace != nil {
		p.cancelGrace()
		p.cancelGrace = nil
	}
}
