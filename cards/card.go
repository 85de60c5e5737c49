package cards

import "strconv"

// Suit is one of the four card suits, stored as its symbol.
type Suit string

const (
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
	Spades   Suit = "♠"
)

// Suits lists every suit in deck-building order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Rank is the face value of a card: "A", "2".."10", "J", "Q", "K".
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Ranks lists every rank in deck-building order.
var Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

// Value returns the blackjack value of the rank with aces counted as 11.
func (r Rank) Value() int {
	switch r {
	case Ace:
		return 11
	case Jack, Queen, King:
		return 10
	default:
		n, err := strconv.Atoi(string(r))
		if err != nil {
			return 0
		}
		return n
	}
}

// Valid reports whether r is one of the thirteen ranks.
func (r Rank) Valid() bool {
	for _, known := range Ranks {
		if r == known {
			return true
		}
	}
	return false
}

// Card is a single playing card. Cards are values; once dealt they are never mutated.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"value"`
}

// New returns the card of the given rank and suit.
func New(r Rank, s Suit) Card {
	return Card{Suit: s, Rank: r}
}

// Value returns the card's value with aces counted as 11.
func (c Card) Value() int {
	return c.Rank.Value()
}

// String renders the card as rank followed by suit, e.g. "10♠".
func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}
