package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps counters and history in process memory. It is used when
// no database is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	stats  map[string]*PlayerStats
	rounds map[string][]RoomRound
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats:  make(map[string]*PlayerStats),
		rounds: make(map[string][]RoomRound),
	}
}

func (m *MemoryStore) RecordResult(ctx context.Context, r Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stats[r.PlayerKey]
	if !ok {
		st = &PlayerStats{PlayerKey: r.PlayerKey}
		m.stats[r.PlayerKey] = st
	}
	st.apply(r)
	return nil
}

func (m *MemoryStore) GetPlayerStats(ctx context.Context, playerKey string) (*PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stats[playerKey]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MemoryStore) InsertRoomRound(ctx context.Context, r RoomRound) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[r.RoomID] = append(m.rounds[r.RoomID], r)
	return nil
}

// ListRoomRounds returns a room's rounds, newest first. A limit <= 0 returns
// every round.
func (m *MemoryStore) ListRoomRounds(ctx context.Context, roomID string, limit int) ([]RoomRound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.rounds[roomID]
	if limit <= 0 {
		limit = len(src)
	}
	out := make([]RoomRound, 0, min(limit, len(src)))
	for _, r := range slices.Backward(src) {
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *MemoryStore) Close() {}
