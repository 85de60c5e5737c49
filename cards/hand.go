package cards

import "strings"

// Blackjack is the target score.
const Blackjack = 21

// FiveCardCount is the number of cards that makes an unbusted hand an automatic win.
const FiveCardCount = 5

// Class is the classification of a hand.
type Class int

const (
	Normal Class = iota
	Natural
	Bust
	FiveCardWin
)

// String returns the protocol string for a Class.
func (c Class) String() string {
	switch c {
	case Normal:
		return "normal"
	case Natural:
		return "blackjack"
	case Bust:
		return "bust"
	case FiveCardWin:
		return "five_card_win"
	default:
		return "unknown"
	}
}

// Hand is an ordered set of cards held by a participant or the dealer.
type Hand []Card

// score returns the hand total and how many aces are still counted as 11.
// Aces start at 11 and are reduced to 1, last to first, while the total exceeds 21.
func (h Hand) score() (total, softAces int) {
	for _, c := range h {
		total += c.Value()
		if c.Rank == Ace {
			softAces++
		}
	}
	for total > Blackjack && softAces > 0 {
		total -= 10
		softAces--
	}
	return total, softAces
}

// Score returns the best total of the hand without busting where possible.
func (h Hand) Score() int {
	total, _ := h.score()
	return total
}

// IsSoft reports whether at least one ace is still counted as 11.
func (h Hand) IsSoft() bool {
	_, soft := h.score()
	return soft > 0
}

// IsBlackjack reports a two-card 21.
func (h Hand) IsBlackjack() bool {
	return len(h) == 2 && h.Score() == Blackjack
}

// IsBust reports a total over 21.
func (h Hand) IsBust() bool {
	return h.Score() > Blackjack
}

// IsFiveCardWin reports five or more cards without busting.
func (h Hand) IsFiveCardWin() bool {
	return len(h) >= FiveCardCount && !h.IsBust()
}

// Classify returns the hand's class. Bust is checked first so a busted
// five-card hand is a bust, not a five-card win.
func (h Hand) Classify() Class {
	switch {
	case h.IsBust():
		return Bust
	case h.IsBlackjack():
		return Natural
	case h.IsFiveCardWin():
		return FiveCardWin
	default:
		return Normal
	}
}

// CanSplit reports a starting pair of equal rank.
func (h Hand) CanSplit() bool {
	return len(h) == 2 && h[0].Rank == h[1].Rank
}

// Clone returns a copy that does not share the backing array.
func (h Hand) Clone() Hand {
	if h == nil {
		return nil
	}
	out := make(Hand, len(h))
	copy(out, h)
	return out
}

// String renders the hand as space-separated cards.
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
