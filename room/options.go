package room

import (
	"log/slog"
	"time"

	"blackjack-server/cards"
	"blackjack-server/config"
	"blackjack-server/dealer"
)

// Options configures a room's table rules and timers.
type Options struct {
	MaxPlayers      int
	StartingBalance int
	MinBet          int
	DeckCount       int
	FiveCardPayout  int
	Difficulty      dealer.Difficulty
	MaxNameLength   int

	// ReconnectGrace is how long a disconnected participant keeps their seat.
	ReconnectGrace time.Duration
	// TurnTimeout auto-stands the participant with turn focus; zero disables it.
	TurnTimeout time.Duration
	// AutoNextRound starts the next round after game_over; zero disables it.
	AutoNextRound time.Duration

	// NewDeck builds the deck for each round. Defaults to a shuffled shoe of DeckCount decks.
	NewDeck func() (*cards.Deck, error)
	// OnRoundSettled receives every settled round. It runs on the room's goroutine
	// and must not block.
	OnRoundSettled func(RoundRecord)

	Logger *slog.Logger
}

// OptionsFromConfig builds room options from the server config.
func OptionsFromConfig(cfg *config.Config) Options {
	diff, err := dealer.ParseDifficulty(cfg.DealerDifficulty)
	if err != nil {
		slog.Warn("invalid dealer difficulty, using medium", "tag", "room", "value", cfg.DealerDifficulty)
	}
	return Options{
		MaxPlayers:      cfg.MaxPlayersPerRoom,
		StartingBalance: cfg.StartingBalance,
		MinBet:          cfg.MinBet,
		DeckCount:       cfg.DeckCount,
		FiveCardPayout:  cfg.FiveCardPayout,
		Difficulty:      diff,
		MaxNameLength:   cfg.MaxNameLength,
		ReconnectGrace:  config.Seconds(cfg.ReconnectGraceSec),
		TurnTimeout:     config.Seconds(cfg.TurnTimeoutSec),
		AutoNextRound:   config.Seconds(cfg.AutoNextRoundSec),
	}
}

func (o Options) withDefaults() Options {
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = 5
	}
	if o.StartingBalance <= 0 {
		o.StartingBalance = 1000
	}
	if o.MinBet <= 0 {
		o.MinBet = 1
	}
	if o.DeckCount <= 0 {
		o.DeckCount = 1
	}
	if o.FiveCardPayout <= 0 {
		o.FiveCardPayout = 2
	}
	if o.MaxNameLength <= 0 {
		o.MaxNameLength = 24
	}
	if o.NewDeck == nil {
		n := o.DeckCount
		o.NewDeck = func() (*cards.Deck, error) { return cards.NewDeck(n) }
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// RoundResult is one participant's settled round.
type RoundResult struct {
	PlayerID string     `json:"player_id"`
	Name     string     `json:"name"`
	IsAI     bool       `json:"is_ai"`
	Bet      int        `json:"bet"`
	Hand     cards.Hand `json:"hand"`
	Score    int        `json:"score"`
	Outcome  Outcome    `json:"outcome"`
	Net      int        `json:"net"`
	Balance  int        `json:"balance"`
}

// RoundRecord describes one settled round of a room.
type RoundRecord struct {
	RoomID      string        `json:"room_id"`
	RoomName    string        `json:"room_name"`
	Round       int           `json:"round"`
	SettledAt   time.Time     `json:"settled_at"`
	DealerHand  cards.Hand    `json:"dealer_hand"`
	DealerScore int           `json:"dealer_score"`
	Message     string        `json:"message"`
	Results     []RoundResult `json:"results"`
}
