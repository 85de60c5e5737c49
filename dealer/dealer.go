// Package dealer implements the house's draw policy. Decisions are pure:
// the same hand, difficulty and visible hands always give the same answer.
package dealer

import (
	"strings"

	"blackjack-server/cards"
	"blackjack-server/gameerrors"
)

// Difficulty selects how aggressively the dealer draws.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
	Expert
)

// String returns the protocol string for a Difficulty.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Expert:
		return "expert"
	default:
		return "unknown"
	}
}

// MarshalText renders the difficulty as its protocol string.
func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDifficulty parses a protocol string. Empty input means Medium.
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Medium, nil
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	case "expert":
		return Expert, nil
	default:
		return Medium, gameerrors.Validation("Unknown difficulty %q", s)
	}
}

// Decision is the dealer's next move.
type Decision int

const (
	Stand Decision = iota
	Hit
)

func (d Decision) String() string {
	if d == Hit {
		return "hit"
	}
	return "stand"
}

// Baseline is the score the dealer stands on at Medium difficulty.
const Baseline = 17

// Decide returns whether the dealer should draw another card.
//
// Easy stands on 16, Medium on 17. Hard also hits a soft 17. Expert plays
// as Hard and additionally hits a hard 17 when every contending visible
// hand already beats it. Hands that busted, hit blackjack or made a
// five-card win are not contending, since the dealer's total cannot
// change their outcome.
func Decide(hand cards.Hand, d Difficulty, visible []cards.Hand) Decision {
	score := hand.Score()
	if score > cards.Blackjack {
		return Stand
	}
	switch d {
	case Easy:
		if score < Baseline-1 {
			return Hit
		}
		return Stand
	case Medium:
		if score < Baseline {
			return Hit
		}
		return Stand
	case Hard, Expert:
		if score < Baseline {
			return Hit
		}
		if score == Baseline && hand.IsSoft() {
			return Hit
		}
		if d == Expert && score == Baseline && allContendersBeat(visible, score) {
			return Hit
		}
		return Stand
	default:
		if score < Baseline {
			return Hit
		}
		return Stand
	}
}

func allContendersBeat(visible []cards.Hand, score int) bool {
	contenders := 0
	for _, h := range visible {
		if h.Classify() != cards.Normal {
			continue
		}
		contenders++
		if h.Score() <= score {
			return false
		}
	}
	return contenders > 0
}
