package ai

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack-server/config"
	"blackjack-server/dealer"
	"blackjack-server/gameerrors"
	"blackjack-server/room"
)

var namePrefix = map[dealer.Difficulty]string{
	dealer.Easy:   "Beginner",
	dealer.Medium: "Average Player",
	dealer.Hard:   "Expert",
	dealer.Expert: "Master",
}

var names = []string{
	"Alex", "Emma", "Jack", "Olivia", "James",
	"Alpha", "Beta", "Gamma", "Delta", "Epsilon",
	"Orange", "Lemon", "Apple", "Banana", "Grape",
}

// Pool starts and stops bots. Bots live until they leave their room or the
// pool's context is cancelled.
type Pool struct {
	ctx     context.Context
	params  config.AIParams
	minBet  int
	newRand func() Rand
	wg      sync.WaitGroup
	log     *slog.Logger
}

// NewPool returns a pool whose bots stop when ctx is cancelled.
func NewPool(ctx context.Context, cfg *config.Config) *Pool {
	return &Pool{
		ctx:    ctx,
		params: cfg.AI,
		minBet: cfg.MinBet,
		newRand: func() Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		log: slog.Default().With("tag", "ai"),
	}
}

// Add seats a new bot of difficulty d in rm and starts it.
func (p *Pool) Add(ctx context.Context, rm *room.Room, d dealer.Difficulty) (Seat, error) {
	rng := p.newRand()
	seat := Seat{
		PlayerID:   "ai_" + uuid.NewString()[:8],
		Name:       namePrefix[d] + "-" + names[rng.Intn(len(names))],
		Difficulty: d,
		MinBet:     p.minBet,
	}
	send := make(chan []byte, 256)
	req := room.JoinRequest{PlayerID: seat.PlayerID, Name: seat.Name, Send: send, IsAI: true, Difficulty: d}
	if err := rm.Submit(ctx, req.Action()); err != nil {
		return Seat{}, err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		Run(p.ctx, rm, send, seat, p.params, rng)
	}()
	p.log.Info("bot joined", "room", rm.ID, "player", seat.PlayerID, "difficulty", d)
	return seat, nil
}

// Remove takes a bot out of rm. It fails if playerID is not an AI participant.
func (p *Pool) Remove(ctx context.Context, rm *room.Room, playerID string) error {
	snap, err := rm.View(ctx, "")
	if err != nil {
		return err
	}
	pv, ok := snap.Player(playerID)
	if !ok {
		return gameerrors.ErrPlayerNotInRoom
	}
	if !pv.IsAI {
		return gameerrors.Validation("Specified player is not AI")
	}
	if err := rm.Submit(ctx, room.Action{Type: room.ActionLeave, PlayerID: playerID}); err != nil {
		return err
	}
	p.log.Info("bot removed", "room", rm.ID, "player", playerID)
	return nil
}

// Wait blocks until every bot started by the pool has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}
