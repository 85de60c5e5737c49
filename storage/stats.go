package storage

import (
	"strings"
	"time"

	"blackjack-server/cards"
)

// Result is one player's outcome for a single settled round.
type Result struct {
	// PlayerKey identifies the stats row: the display name for room players,
	// the visitor or authenticated user id in single-player mode.
	PlayerKey string
	Name      string
	// Outcome lists one outcome per hand, comma separated ("win,lose" after a split).
	Outcome   string
	Blackjack bool
	Busted    bool
	Net       int
	Balance   int
}

// PlayerStats is the running counter set for one player key.
type PlayerStats struct {
	PlayerKey      string  `json:"player_key"`
	Name           string  `json:"name"`
	GamesPlayed    int     `json:"games_played"`
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	Pushes         int     `json:"pushes"`
	Blackjacks     int     `json:"blackjacks"`
	Busts          int     `json:"busts"`
	TotalWinnings  int     `json:"total_winnings"`
	HighestBalance int     `json:"highest_balance"`
	WinRate        float64 `json:"win_rate"`
}

// counters is the per-round increment a Result contributes.
type counters struct {
	wins, losses, pushes, blackjacks, busts int
}

// counters counts wins, losses and pushes per hand. A Result without a known
// outcome is decided by its net.
func (r Result) counters() counters {
	var c counters
	for o := range strings.SplitSeq(r.Outcome, ",") {
		switch strings.TrimSpace(o) {
		case "win", "blackjack", "five_card_win":
			c.wins++
		case "lose":
			c.losses++
		case "push":
			c.pushes++
		}
	}
	if c.wins+c.losses+c.pushes == 0 {
		switch {
		case r.Net > 0:
			c.wins = 1
		case r.Net < 0:
			c.losses = 1
		default:
			c.pushes = 1
		}
	}
	if r.Blackjack {
		c.blackjacks = 1
	}
	if r.Busted {
		c.busts = 1
	}
	return c
}

// apply folds r into s.
func (s *PlayerStats) apply(r Result) {
	c := r.counters()
	s.Name = r.Name
	s.GamesPlayed++
	s.Wins += c.wins
	s.Losses += c.losses
	s.Pushes += c.pushes
	s.Blackjacks += c.blackjacks
	s.Busts += c.busts
	s.TotalWinnings += r.Net
	s.HighestBalance = max(s.HighestBalance, r.Balance)
	s.computeWinRate()
}

// computeWinRate is the share of decided hands that won.
func (s *PlayerStats) computeWinRate() {
	hands := s.Wins + s.Losses + s.Pushes
	if hands == 0 {
		s.WinRate = 0
		return
	}
	s.WinRate = float64(s.Wins) / float64(hands) * 100
}

// RoundPlayer is a participant's line in a room round record.
type RoundPlayer struct {
	PlayerID string       `json:"player_id"`
	Name     string       `json:"name"`
	IsAI     bool         `json:"is_ai"`
	Bet      int          `json:"bet"`
	Hand     []cards.Card `json:"hand"`
	Score    int          `json:"score"`
	Outcome  string       `json:"outcome"`
	Net      int          `json:"win_loss"`
	Balance  int          `json:"final_money"`
}

// RoomRound is the persisted history entry for one settled room round.
type RoomRound struct {
	ID          string        `json:"id"`
	RoomID      string        `json:"room_id"`
	RoomName    string        `json:"room_name"`
	Round       int           `json:"round"`
	PlayedAt    time.Time     `json:"played_at"`
	DealerHand  []cards.Card  `json:"dealer_cards"`
	DealerScore int           `json:"dealer_score"`
	Message     string        `json:"game_result"`
	Players     []RoundPlayer `json:"players"`
}

// Results converts the round's players into stats results keyed by name.
// AI players are skipped.
func (r RoomRound) Results() []Result {
	out := make([]Result, 0, len(r.Players))
	for _, p := range r.Players {
		if p.IsAI {
			continue
		}
		out = append(out, Result{
			PlayerKey: p.Name,
			Name:      p.Name,
			Outcome:   p.Outcome,
			Blackjack: p.Outcome == "blackjack" || (len(p.Hand) == 2 && p.Score == cards.Blackjack),
			Busted:    p.Score > cards.Blackjack,
			Net:       p.Net,
			Balance:   p.Balance,
		})
	}
	return out
}
