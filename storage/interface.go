package storage

import "context"

// StatsStore abstracts persistence for player counters and room history.
// Implementations can be swapped for testing or for a different backend.
type StatsStore interface {
	// Read
	GetPlayerStats(ctx context.Context, playerKey string) (*PlayerStats, error)
	ListRoomRounds(ctx context.Context, roomID string, limit int) ([]RoomRound, error)

	// Write
	RecordResult(ctx context.Context, r Result) error
	InsertRoomRound(ctx context.Context, r RoomRound) error

	// Lifecycle
	Close()
}

// Ensure both implementations satisfy StatsStore at compile time.
var (
	_ StatsStore = (*Store)(nil)
	_ StatsStore = (*MemoryStore)(nil)
)
