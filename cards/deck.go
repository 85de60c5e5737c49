package cards

import (
	"math/rand/v2"

	"blackjack-server/gameerrors"
)

// MaxDecks is the largest shoe NewDeck will build.
const MaxDecks = 8

// Deck is an ordered sequence of cards consumed from the front.
// A Deck is owned by exactly one room or single-player table.
type Deck struct {
	cards []Card
}

// NewDeck builds n standard 52-card decks and shuffles them with a uniform
// random permutation.
func NewDeck(n int) (*Deck, error) {
	if n < 1 || n > MaxDecks {
		return nil, gameerrors.Validation("deck count must be between 1 and %d, got %d", MaxDecks, n)
	}
	cards := make([]Card, 0, 52*n)
	for d := 0; d < n; d++ {
		for _, s := range Suits {
			for _, r := range Ranks {
				cards = append(cards, Card{Suit: s, Rank: r})
			}
		}
	}
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{cards: cards}, nil
}

// NewStackedDeck returns a deck that deals the given cards in order.
func NewStackedDeck(cards ...Card) *Deck {
	out := make([]Card, len(cards))
	copy(out, cards)
	return &Deck{cards: out}
}

// Draw removes and returns the front card.
func (d *Deck) Draw() (Card, error) {
	if d == nil || len(d.cards) == 0 {
		return Card{}, gameerrors.ErrDeckExhausted
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	if d == nil {
		return 0
	}
	return len(d.cards)
}

// Cards returns a copy of the undealt cards, front first.
func (d *Deck) Cards() []Card {
	if d == nil {
		return nil
	}
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
