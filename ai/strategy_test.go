package ai

import (
	"testing"

	"blackjack-server/cards"
	"blackjack-server/dealer"
)

// fixedRand returns the same values every call.
type fixedRand struct {
	n int
	f float64
}

func (r fixedRand) Intn(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}

func (r fixedRand) Float64() float64 { return r.f }

func hand(ranks ...cards.Rank) cards.Hand {
	h := make(cards.Hand, len(ranks))
	for i, r := range ranks {
		h[i] = cards.New(r, cards.Clubs)
	}
	return h
}

func up(r cards.Rank) cards.Card { return cards.New(r, cards.Diamonds) }

func TestBetAmount(t *testing.T) {
	low := fixedRand{n: 0}
	high := fixedRand{n: 1 << 30}
	tests := []struct {
		name    string
		d       dealer.Difficulty
		balance int
		minBet  int
		rng     Rand
		want    int
	}{
		{"easy", dealer.Easy, 1000, 1, low, 100},
		{"easy short stack", dealer.Easy, 60, 1, low, 60},
		{"medium low", dealer.Medium, 1000, 1, low, 100},
		{"medium high", dealer.Medium, 1000, 1, high, 300},
		{"medium capped by balance", dealer.Medium, 250, 1, high, 250},
		{"hard low", dealer.Hard, 2000, 1, low, 100},
		{"hard high", dealer.Hard, 2000, 1, high, 400},
		{"hard small balance", dealer.Hard, 300, 1, high, 100},
		{"expert low", dealer.Expert, 2000, 1, low, 200},
		{"expert high", dealer.Expert, 2000, 1, high, 600},
		{"expert floor", dealer.Expert, 500, 1, low, 100},
		{"respects min bet", dealer.Easy, 1000, 150, low, 150},
		{"cannot cover min bet", dealer.Easy, 40, 50, low, 0},
		{"broke", dealer.Medium, 0, 1, low, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BetAmount(tt.d, tt.balance, tt.minBet, tt.rng); got != tt.want {
				t.Errorf("BetAmount(%s, %d, %d) = %d, want %d", tt.d, tt.balance, tt.minBet, got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	never := fixedRand{f: 0.99}
	always := fixedRand{f: 0}
	tests := []struct {
		name   string
		hand   cards.Hand
		upcard cards.Rank
		d      dealer.Difficulty
		rng    Rand
		want   Move
	}{
		{"easy hits 16", hand(cards.Ten, cards.Six), cards.Two, dealer.Easy, never, Hit},
		{"easy stands 17", hand(cards.Ten, cards.Seven), cards.Ace, dealer.Easy, never, Stand},
		{"medium hits 11", hand(cards.Five, cards.Six), cards.Two, dealer.Medium, never, Hit},
		{"medium hits 14 vs 7", hand(cards.Ten, cards.Four), cards.Seven, dealer.Medium, never, Hit},
		{"medium stands 14 vs 4", hand(cards.Ten, cards.Four), cards.Four, dealer.Medium, never, Stand},
		{"medium gambles 14 vs 4", hand(cards.Ten, cards.Four), cards.Four, dealer.Medium, always, Hit},
		{"medium stands 17", hand(cards.Ten, cards.Seven), cards.Ace, dealer.Medium, always, Stand},
		{"hard hits 16 vs ace", hand(cards.Ten, cards.Six), cards.Ace, dealer.Hard, never, Hit},
		{"hard stands 12 vs 6", hand(cards.Ten, cards.Two), cards.Six, dealer.Hard, never, Stand},
		{"hard doubles 11", hand(cards.Five, cards.Six), cards.Five, dealer.Hard, always, DoubleDown},
		{"hard skips double", hand(cards.Five, cards.Six), cards.Five, dealer.Hard, never, Hit},
		{"expert hits 12 vs 2", hand(cards.Ten, cards.Two), cards.Two, dealer.Expert, never, Hit},
		{"expert hits 12 vs 3", hand(cards.Ten, cards.Two), cards.Three, dealer.Expert, never, Hit},
		{"expert stands 12 vs 5", hand(cards.Ten, cards.Two), cards.Five, dealer.Expert, never, Stand},
		{"expert stands 13 vs 6", hand(cards.Ten, cards.Three), cards.Six, dealer.Expert, never, Stand},
		{"expert hits 15 vs 10", hand(cards.Ten, cards.Five), cards.King, dealer.Expert, never, Hit},
		{"expert doubles 10", hand(cards.Six, cards.Four), cards.Nine, dealer.Expert, always, DoubleDown},
		{"no double with three cards", hand(cards.Two, cards.Three, cards.Five), cards.Nine, dealer.Expert, always, Hit},
		{"stands on 21", hand(cards.Ace, cards.King), cards.Ace, dealer.Easy, never, Stand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.hand, up(tt.upcard), tt.d, 1000, 100, tt.rng)
			if got != tt.want {
				t.Errorf("Decide(%s vs %s, %s) = %s, want %s", tt.hand, tt.upcard, tt.d, got, tt.want)
			}
		})
	}
}

func TestDecideNoDoubleWhenUnaffordable(t *testing.T) {
	got := Decide(hand(cards.Five, cards.Six), up(cards.Six), dealer.Expert, 50, 100, fixedRand{f: 0})
	if got != Hit {
		t.Errorf("expected Hit when the balance cannot cover a double, got %s", got)
	}
}
