package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS player_stats (
	player_key      TEXT PRIMARY KEY,
	display_name    TEXT NOT NULL DEFAULT '',
	games_played    INT  NOT NULL DEFAULT 0,
	wins            INT  NOT NULL DEFAULT 0,
	losses          INT  NOT NULL DEFAULT 0,
	pushes          INT  NOT NULL DEFAULT 0,
	blackjacks      INT  NOT NULL DEFAULT 0,
	busts           INT  NOT NULL DEFAULT 0,
	total_winnings  INT  NOT NULL DEFAULT 0,
	highest_balance INT  NOT NULL DEFAULT 0,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS room_rounds (
	id           UUID PRIMARY KEY,
	room_id      TEXT NOT NULL,
	room_name    TEXT NOT NULL,
	round        INT  NOT NULL,
	played_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	dealer_cards JSONB NOT NULL,
	dealer_score INT  NOT NULL,
	message      TEXT NOT NULL DEFAULT '',
	players      JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_room_rounds_room ON room_rounds(room_id, played_at DESC);
`

// Store persists player counters and room history in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the tables exist.
// If databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// RecordResult adds one round's outcome to the player's counters, creating
// the row on first use.
func (s *Store) RecordResult(ctx context.Context, r Result) error {
	if s == nil || s.pool == nil {
		return nil
	}
	c := r.counters()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_stats (player_key, display_name, games_played, wins, losses, pushes, blackjacks, busts, total_winnings, highest_balance)
		VALUES ($1, $2, 1, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (player_key) DO UPDATE SET
			display_name    = EXCLUDED.display_name,
			games_played    = player_stats.games_played + 1,
			wins            = player_stats.wins + EXCLUDED.wins,
			losses          = player_stats.losses + EXCLUDED.losses,
			pushes          = player_stats.pushes + EXCLUDED.pushes,
			blackjacks      = player_stats.blackjacks + EXCLUDED.blackjacks,
			busts           = player_stats.busts + EXCLUDED.busts,
			total_winnings  = player_stats.total_winnings + EXCLUDED.total_winnings,
			highest_balance = GREATEST(player_stats.highest_balance, EXCLUDED.highest_balance),
			updated_at      = now()`,
		r.PlayerKey, r.Name, c.wins, c.losses, c.pushes, c.blackjacks, c.busts, r.Net, r.Balance)
	return err
}

// GetPlayerStats returns the counters for playerKey, or (nil, nil) if the
// player has no recorded rounds.
func (s *Store) GetPlayerStats(ctx context.Context, playerKey string) (*PlayerStats, error) {
	if s == nil || s.pool == nil || playerKey == "" {
		return nil, nil
	}
	var st PlayerStats
	err := s.pool.QueryRow(ctx, `
		SELECT player_key, display_name, games_played, wins, losses, pushes, blackjacks, busts, total_winnings, highest_balance
		FROM player_stats
		WHERE player_key = $1`,
		playerKey).Scan(&st.PlayerKey, &st.Name, &st.GamesPlayed, &st.Wins, &st.Losses, &st.Pushes, &st.Blackjacks, &st.Busts, &st.TotalWinnings, &st.HighestBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	st.computeWinRate()
	return &st, nil
}

// InsertRoomRound records a settled room round. An empty ID is assigned a new UUID.
func (s *Store) InsertRoomRound(ctx context.Context, r RoomRound) error {
	if s == nil || s.pool == nil {
		return nil
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_rounds (id, room_id, room_name, round, played_at, dealer_cards, dealer_score, message, players)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.RoomID, r.RoomName, r.Round, r.PlayedAt, r.DealerHand, r.DealerScore, r.Message, r.Players)
	return err
}

// ListRoomRounds returns a room's rounds, newest first. A limit <= 0 returns
// every round.
func (s *Store) ListRoomRounds(ctx context.Context, roomID string, limit int) ([]RoomRound, error) {
	if s == nil || s.pool == nil {
		return []RoomRound{}, nil
	}
	query := `
		SELECT id, room_id, room_name, round, played_at, dealer_cards, dealer_score, message, players
		FROM room_rounds
		WHERE room_id = $1
		ORDER BY played_at DESC`
	args := []any{roomID}
	if limit > 0 {
		query += `
		LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RoomRound{}
	for rows.Next() {
		var r RoomRound
		if err := rows.Scan(&r.ID, &r.RoomID, &r.RoomName, &r.Round, &r.PlayedAt, &r.DealerHand, &r.DealerScore, &r.Message, &r.Players); err != nil {
			return nil, err
		}
		r.PlayedAt = r.PlayedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
