package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// AIParams holds the pacing of AI participants.
type AIParams struct {
	DelayMinMS int `json:"delay_min_ms"`
	DelayMaxMS int `json:"delay_max_ms"`
}

// Config holds all configurable server and table parameters.
type Config struct {
	Port int `json:"port"`

	MaxPlayersPerRoom int `json:"max_players_per_room"`
	StartingBalance   int `json:"starting_balance"`
	MinBet            int `json:"min_bet"`
	DeckCount         int `json:"deck_count"`
	// FiveCardPayout is the win multiple of the bet paid for a five-card win.
	FiveCardPayout   int    `json:"five_card_payout"`
	DealerDifficulty string `json:"dealer_difficulty"`

	ReconnectGraceSec    int `json:"reconnect_grace_sec"`
	SessionTTLSec        int `json:"session_ttl_sec"`
	EmptyRoomGraceSec    int `json:"empty_room_grace_sec"`
	RoomSweepIntervalSec int `json:"room_sweep_interval_sec"`
	TurnTimeoutSec       int `json:"turn_timeout_sec"`      // 0 disables
	AutoNextRoundSec     int `json:"auto_next_round_sec"`   // 0 disables
	SoloIdleTimeoutSec   int `json:"solo_idle_timeout_sec"` // single-player tables

	MaxNameLength     int `json:"max_name_length"`
	MaxRoomNameLength int `json:"max_room_name_length"`

	AI AIParams `json:"ai"`

	DatabaseURL    string `json:"database_url"`
	AuthBaseURL    string `json:"auth_base_url"`
	AllowedOrigins string `json:"allowed_origins"`
	LogLevel       string `json:"log_level"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Port:                 8080,
		MaxPlayersPerRoom:    5,
		StartingBalance:      1000,
		MinBet:               1,
		DeckCount:            1,
		FiveCardPayout:       2,
		DealerDifficulty:     "medium",
		ReconnectGraceSec:    60,
		SessionTTLSec:        3600,
		EmptyRoomGraceSec:    60,
		RoomSweepIntervalSec: 5,
		TurnTimeoutSec:       0,
		AutoNextRoundSec:     0,
		SoloIdleTimeoutSec:   3600,
		MaxNameLength:        24,
		MaxRoomNameLength:    48,
		AI:                   AIParams{DelayMinMS: 600, DelayMaxMS: 1500},
		LogLevel:             "info",
	}
}

// Load reads configuration from an optional config.json file,
// then applies environment variable overrides. Fields not set
// in either source retain their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.Port, "PORT")
	overrideInt(&cfg.MaxPlayersPerRoom, "MAX_PLAYERS_PER_ROOM")
	overrideInt(&cfg.StartingBalance, "STARTING_BALANCE")
	overrideInt(&cfg.MinBet, "MIN_BET")
	overrideInt(&cfg.DeckCount, "DECK_COUNT")
	overrideInt(&cfg.FiveCardPayout, "FIVE_CARD_PAYOUT")
	overrideString(&cfg.DealerDifficulty, "DEALER_DIFFICULTY")
	overrideInt(&cfg.ReconnectGraceSec, "RECONNECT_GRACE_SEC")
	overrideInt(&cfg.SessionTTLSec, "SESSION_TTL_SEC")
	overrideInt(&cfg.EmptyRoomGraceSec, "EMPTY_ROOM_GRACE_SEC")
	overrideInt(&cfg.RoomSweepIntervalSec, "ROOM_SWEEP_INTERVAL_SEC")
	overrideInt(&cfg.TurnTimeoutSec, "TURN_TIMEOUT_SEC")
	overrideInt(&cfg.AutoNextRoundSec, "AUTO_NEXT_ROUND_SEC")
	overrideInt(&cfg.SoloIdleTimeoutSec, "SOLO_IDLE_TIMEOUT_SEC")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.MaxRoomNameLength, "MAX_ROOM_NAME_LENGTH")
	overrideInt(&cfg.AI.DelayMinMS, "AI_DELAY_MIN_MS")
	overrideInt(&cfg.AI.DelayMaxMS, "AI_DELAY_MAX_MS")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.AllowedOrigins, "ALLOWED_ORIGINS")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")

	return cfg
}

// Origins splits AllowedOrigins into a list. An empty list allows every origin.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Seconds converts a *Sec field to a time.Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
