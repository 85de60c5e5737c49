package storage

import (
	"context"
	"log/slog"
	"time"
)

const writeTimeout = 5 * time.Second

// Recorder persists room rounds off the caller's goroutine. Record never
// blocks; when the queue is full the round is dropped and logged.
type Recorder struct {
	store StatsStore
	queue chan RoomRound
	log   *slog.Logger
}

// NewRecorder returns a recorder with room for buffer pending rounds.
func NewRecorder(store StatsStore, buffer int) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	return &Recorder{
		store: store,
		queue: make(chan RoomRound, buffer),
		log:   slog.Default().With("tag", "storage"),
	}
}

// Record queues r for persistence and reports whether it was accepted.
func (r *Recorder) Record(rr RoomRound) bool {
	select {
	case r.queue <- rr:
		return true
	default:
		r.log.Warn("round record dropped", "room", rr.RoomID, "round", rr.Round)
		return false
	}
}

// Run writes queued rounds until ctx is cancelled, then drains what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case rr := <-r.queue:
					r.write(context.Background(), rr)
				default:
					return
				}
			}
		case rr := <-r.queue:
			r.write(ctx, rr)
		}
	}
}

func (r *Recorder) write(ctx context.Context, rr RoomRound) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := r.store.InsertRoomRound(ctx, rr); err != nil {
		r.log.Warn("failed to save room round", "room", rr.RoomID, "err", err)
	}
	for _, res := range rr.Results() {
		if err := r.store.RecordResult(ctx, res); err != nil {
			r.log.Warn("failed to update player stats", "player", res.PlayerKey, "err", err)
		}
	}
}
