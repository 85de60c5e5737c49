// Package ai runs computer-controlled room participants. A bot sees exactly
// what a human client sees (the snapshots pushed to its send channel) and
// acts through the room's Submit like any other participant.
package ai

import (
	"blackjack-server/cards"
	"blackjack-server/dealer"
)

// Rand is the randomness a bot draws on. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Move is a playing decision.
type Move int

const (
	Stand Move = iota
	Hit
	DoubleDown
)

func (m Move) String() string {
	switch m {
	case Hit:
		return "hit"
	case DoubleDown:
		return "double_down"
	default:
		return "stand"
	}
}

const baseBet = 100

// BetAmount picks a wager for the difficulty. It returns 0 when the balance
// cannot cover minBet.
func BetAmount(d dealer.Difficulty, balance, minBet int, rng Rand) int {
	if balance <= 0 || balance < minBet {
		return 0
	}
	var amount int
	switch d {
	case dealer.Easy:
		amount = baseBet
	case dealer.Medium:
		amount = baseBet + rng.Intn(201)
	case dealer.Hard:
		amount = between(baseBet, balance/5, rng)
	case dealer.Expert:
		amount = between(balance/10, balance*3/10, rng)
	default:
		amount = baseBet
	}
	lo := max(min(baseBet, balance), minBet)
	return min(max(amount, lo), balance)
}

// between returns a value in [lo, hi], or lo when the range is empty.
func between(lo, hi int, rng Rand) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

var doubleChance = map[dealer.Difficulty]float64{
	dealer.Hard:   0.5,
	dealer.Expert: 0.8,
}

// Decide chooses a move for hand given the dealer's face-up card. balance and
// bet decide whether doubling is affordable.
func Decide(hand cards.Hand, upcard cards.Card, d dealer.Difficulty, balance, bet int, rng Rand) Move {
	score := hand.Score()
	if score >= cards.Blackjack {
		return Stand
	}
	up := upcard.Value()

	if p, ok := doubleChance[d]; ok && len(hand) == 2 && score >= 9 && score <= 11 && balance >= bet {
		if rng.Float64() < p {
			return DoubleDown
		}
	}

	switch d {
	case dealer.Easy:
		return hitIf(score < 17)
	case dealer.Medium:
		switch {
		case score < 12:
			return Hit
		case score <= 16:
			return hitIf(up >= 7 || rng.Float64() < 0.3)
		}
	case dealer.Hard:
		switch {
		case score < 12:
			return Hit
		case score <= 16:
			return hitIf(up >= 7)
		}
	case dealer.Expert:
		switch {
		case score <= 11:
			return Hit
		case score == 12:
			return hitIf(up == 2 || up == 3 || up >= 7)
		case score <= 16:
			return hitIf(up >= 7)
		}
	}
	return Stand
}

func hitIf(cond bool) Move {
	if cond {
		return Hit
	}
	return Stand
}
