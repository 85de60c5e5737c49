// Package lobby keeps the set of open rooms. The registry has its own lock;
// it never holds it while talking to a room.
package lobby

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack-server/config"
	"blackjack-server/gameerrors"
	"blackjack-server/room"
)

type entry struct {
	room *room.Room
	// emptySince is when the room was first seen without human participants.
	emptySince time.Time
}

// Registry creates, lists and reaps rooms.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry
	order []string

	opts          room.Options
	maxNameLength int
	emptyGrace    time.Duration
	sweepInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger
}

// NewRegistry returns an empty registry. Rooms it creates use opts.
func NewRegistry(cfg *config.Config, opts room.Options) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		rooms:         make(map[string]*entry),
		opts:          opts,
		maxNameLength: cfg.MaxRoomNameLength,
		emptyGrace:    config.Seconds(cfg.EmptyRoomGraceSec),
		sweepInterval: config.Seconds(cfg.RoomSweepIntervalSec),
		ctx:           ctx,
		cancel:        cancel,
		log:           slog.Default().With("tag", "lobby"),
	}
}

// Create opens a new room in the waiting state and starts its action loop.
// A blank name becomes "Room N", N counting the open rooms.
func (r *Registry) Create(name string) (*room.Room, error) {
	if strings.TrimSpace(name) == "" {
		name = fmt.Sprintf("Room %d", r.Len()+1)
	}
	name, err := room.CleanName(name, r.maxNameLength)
	if err != nil {
		return nil, gameerrors.Validation("Invalid room name: %s", err)
	}
	id := uuid.NewString()
	rm := room.New(id, name, r.opts)

	r.mu.Lock()
	r.rooms[id] = &entry{room: rm}
	r.order = append(r.order, id)
	r.mu.Unlock()

	go rm.Run(r.ctx)
	r.log.Info("room created", "room", id, "name", name)
	return rm, nil
}

// Get returns the room with the given id.
func (r *Registry) Get(id string) (*room.Room, error) {
	r.mu.RLock()
	e, ok := r.rooms[id]
	r.mu.RUnlock()
	if !ok {
		return nil, gameerrors.ErrRoomNotFound
	}
	return e.room, nil
}

// List yields a summary of every open room in creation order. Each
// iteration reads the live registry, so a sequence can be ranged over again
// to see rooms created or removed since.
func (r *Registry) List() iter.Seq[room.Summary] {
	return func(yield func(room.Summary) bool) {
		r.mu.RLock()
		ids := slices.Clone(r.order)
		r.mu.RUnlock()
		for _, id := range ids {
			r.mu.RLock()
			e, ok := r.rooms[id]
			r.mu.RUnlock()
			if !ok {
				continue
			}
			if !yield(e.room.Summary()) {
				return
			}
		}
	}
}

// Join seats a participant in a room.
func (r *Registry) Join(ctx context.Context, roomID string, req room.JoinRequest) (*room.Room, error) {
	rm, err := r.Get(roomID)
	if err != nil {
		return nil, err
	}
	if err := rm.Submit(ctx, req.Action()); err != nil {
		return nil, err
	}
	return rm, nil
}

// Remove closes and forgets a room. It reports whether the room existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	e, ok := r.rooms[id]
	if ok {
		delete(r.rooms, id)
		r.order = slices.DeleteFunc(r.order, func(s string) bool { return s == id })
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	e.room.Close()
	r.log.Info("room removed", "room", id)
	return true
}

// Len returns the number of open rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Sweep removes rooms that have had no human participants for longer than
// the empty-room grace period. Participants inside their reconnection window
// still count, so a room is never reaped while someone may come back.
func (r *Registry) Sweep(now time.Time) int {
	var expired []string
	r.mu.Lock()
	for id, e := range r.rooms {
		if e.room.Summary().Humans > 0 {
			e.emptySince = time.Time{}
			continue
		}
		if e.emptySince.IsZero() {
			e.emptySince = now
		}
		if now.Sub(e.emptySince) >= r.emptyGrace {
			expired = append(expired, id)
		}
	}
	r.mu.Unlock()

	for _, id := range expired {
		r.Remove(id)
	}
	return len(expired)
}

// Run reaps empty rooms until ctx is cancelled, then shuts every room down.
func (r *Registry) Run(ctx context.Context) {
	interval := r.sweepInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Shutdown()
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.log.Info("reaped empty rooms", "count", n)
			}
		}
	}
}

// Shutdown stops every room's action loop.
func (r *Registry) Shutdown() {
	r.cancel()
}
