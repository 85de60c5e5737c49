// Package room runs one blackjack table per goroutine. Every action for a
// room goes through its action channel and is applied in arrival order, so
// all observers see the same sequence of snapshots.
package room

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"blackjack-server/gameerrors"
	"blackjack-server/wsutil"
)

// Room owns a Table and serializes access to it.
type Room struct {
	ID   string
	Name string

	table   *Table
	actions chan Action
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	summary atomic.Pointer[Summary]
	log     *slog.Logger
}

// New creates a room in the waiting state. Call Run to start processing actions.
func New(id, name string, opts Options) *Room {
	r := &Room{
		ID:      id,
		Name:    name,
		actions: make(chan Action, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	r.table = newTable(id, name, opts, r.schedule)
	r.log = r.table.log
	r.storeSummary()
	return r
}

// Run is the room's action loop. It returns when ctx is cancelled or Close is called.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	defer r.table.stopTimers()
	r.log.Info("room opened", "name", r.Name)
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.quit:
			r.log.Info("room closed")
			return
		case a := <-r.actions:
			r.handle(a)
		}
	}
}

func (r *Room) handle(a Action) {
	if a.Type == ActionView {
		if _, ok := r.table.Participant(a.PlayerID); !ok && a.PlayerID != "" {
			a.reply <- gameerrors.ErrPlayerNotInRoom
			return
		}
		a.view <- r.table.Snapshot("room_data", a.PlayerID)
		return
	}
	err := r.table.Apply(a)
	if err != nil {
		r.log.Debug("action rejected", "action", a.Type, "player", a.PlayerID, "err", err)
	}
	r.storeSummary()
	for _, d := range r.table.drain() {
		if !wsutil.SafeSend(d.send, d.data) {
			r.log.Warn("dropped delivery", "player", d.playerID)
		}
	}
	if a.reply != nil {
		a.reply <- err
	}
}

func (r *Room) storeSummary() {
	s := r.table.Summary()
	r.summary.Store(&s)
}

// Submit sends an action to the room and waits until it has been applied.
// The returned error is the action's validation result.
func (r *Room) Submit(ctx context.Context, a Action) error {
	a.reply = make(chan error, 1)
	if err := r.enqueue(ctx, a); err != nil {
		return err
	}
	select {
	case err := <-a.reply:
		return err
	case <-r.done:
		select {
		case err := <-a.reply:
			return err
		default:
			return gameerrors.ErrRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns the current snapshot as seen by viewerID. An empty viewerID
// gives an observer view.
func (r *Room) View(ctx context.Context, viewerID string) (Snapshot, error) {
	a := Action{Type: ActionView, PlayerID: viewerID, reply: make(chan error, 1), view: make(chan Snapshot, 1)}
	if err := r.enqueue(ctx, a); err != nil {
		return Snapshot{}, err
	}
	select {
	case s := <-a.view:
		return s, nil
	case err := <-a.reply:
		return Snapshot{}, err
	case <-r.done:
		return Snapshot{}, gameerrors.ErrRoomClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (r *Room) enqueue(ctx context.Context, a Action) error {
	select {
	case <-r.done:
		return gameerrors.ErrRoomClosed
	default:
	}
	select {
	case r.actions <- a:
		return nil
	case <-r.done:
		return gameerrors.ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary returns the registry view as of the last applied action.
func (r *Room) Summary() Summary {
	return *r.summary.Load()
}

// Close stops the action loop. Safe to call more than once.
func (r *Room) Close() {
	r.once.Do(func() { close(r.quit) })
}

// Done is closed once the action loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// schedule posts a into the action channel after d unless cancelled first.
func (r *Room) schedule(d time.Duration, a Action) func() {
	cancel := make(chan struct{})
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case r.actions <- a:
			case <-r.done:
			}
		case <-cancel:
		case <-r.done:
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(cancel) }) }
}
