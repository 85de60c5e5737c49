package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"blackjack-server/config"
	"blackjack-server/dealer"
	"blackjack-server/room"
)

// Submitter is the part of a room a bot talks to.
type Submitter interface {
	Submit(ctx context.Context, a room.Action) error
	Done() <-chan struct{}
}

// Seat identifies a bot inside its room.
type Seat struct {
	PlayerID   string
	Name       string
	Difficulty dealer.Difficulty
	MinBet     int
}

// Run reads snapshots from send and acts whenever the bot is expected to.
// It returns when the bot receives its own player_left, when send is closed,
// or when the room or ctx is done.
func Run(ctx context.Context, rm Submitter, send <-chan []byte, seat Seat, params config.AIParams, rng Rand) {
	log := slog.Default().With("tag", "ai", "name", seat.Name)
	var acted string
	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case <-rm.Done():
			return
		case d, ok := <-send:
			if !ok {
				return
			}
			data = d
		}

		snap, gone := read(data, seat.PlayerID, nil)
		if !gone {
			snap, gone = drain(send, seat.PlayerID, snap)
		}
		if gone {
			log.Debug("left room")
			return
		}
		if snap == nil || !needsAction(snap, seat) || stateKey(snap, seat.PlayerID) == acted {
			continue
		}

		if !wait(ctx, rm, delay(params, rng)) {
			return
		}
		// Anything that arrived while thinking supersedes what we saw.
		if snap, gone = drain(send, seat.PlayerID, snap); gone {
			log.Debug("left room")
			return
		}
		key := stateKey(snap, seat.PlayerID)
		if !needsAction(snap, seat) || key == acted {
			continue
		}
		acted = key

		a := nextAction(snap, seat, rng)
		log.Debug("acting", "action", a.Type, "amount", a.Amount)
		if err := rm.Submit(ctx, a); err != nil {
			log.Debug("action rejected", "action", a.Type, "err", err)
		}
	}
}

// read decodes one message. It returns cur unchanged for messages that are
// not snapshots, and gone=true for the bot's own player_left.
func read(data []byte, id string, cur *room.Snapshot) (*room.Snapshot, bool) {
	var env struct {
		Type     string `json:"type"`
		PlayerID string `json:"player_id"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return cur, false
	}
	switch env.Type {
	case "player_left":
		return cur, env.PlayerID == id
	case "room_data", "game_update":
		var s room.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return cur, false
		}
		return &s, false
	}
	return cur, false
}

// drain consumes every queued message without blocking and returns the newest snapshot.
func drain(send <-chan []byte, id string, cur *room.Snapshot) (*room.Snapshot, bool) {
	for {
		select {
		case data, ok := <-send:
			if !ok {
				return cur, true
			}
			var gone bool
			if cur, gone = read(data, id, cur); gone {
				return cur, true
			}
		default:
			return cur, false
		}
	}
}

func needsAction(s *room.Snapshot, seat Seat) bool {
	me, ok := s.Player(seat.PlayerID)
	if !ok {
		return false
	}
	switch s.GameState {
	case room.Waiting:
		return me.State == room.PWaiting || (me.State == room.PSpectating && me.Money >= seat.MinBet && me.Money > 0)
	case room.Betting:
		return me.State == room.PBetting
	case room.Playing:
		return s.CurrentPlayerID == seat.PlayerID && me.State == room.PPlaying
	default:
		return false
	}
}

// stateKey identifies a decision point so the bot acts on it only once.
func stateKey(s *room.Snapshot, id string) string {
	me, _ := s.Player(id)
	return fmt.Sprintf("%d/%s/%s/%d", s.Round, s.GameState, me.State, len(me.Hand))
}

func nextAction(s *room.Snapshot, seat Seat, rng Rand) room.Action {
	me, _ := s.Player(seat.PlayerID)
	a := room.Action{PlayerID: seat.PlayerID}
	switch s.GameState {
	case room.Waiting:
		a.Type = room.ActionReady
	case room.Betting:
		a.Type = room.ActionBet
		a.Amount = BetAmount(seat.Difficulty, me.Money, seat.MinBet, rng)
	case room.Playing:
		var move Move
		if len(s.Dealer.Hand) > 0 {
			move = Decide(me.Hand, s.Dealer.Hand[0], seat.Difficulty, me.Money, me.CurrentBet, rng)
		}
		switch move {
		case Hit:
			a.Type = room.ActionHit
		case DoubleDown:
			a.Type = room.ActionDoubleDown
		default:
			a.Type = room.ActionStand
		}
	}
	return a
}

func delay(params config.AIParams, rng Rand) time.Duration {
	ms := params.DelayMinMS
	if params.DelayMaxMS > params.DelayMinMS {
		ms = params.DelayMinMS + rng.Intn(params.DelayMaxMS-params.DelayMinMS)
	}
	return time.Duration(ms) * time.Millisecond
}

func wait(ctx context.Context, rm Submitter, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-rm.Done():
		return false
	}
}
