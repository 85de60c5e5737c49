package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"blackjack-server/cards"
	"blackjack-server/config"
	"blackjack-server/dealer"
	"blackjack-server/room"
)

type fakeRoom struct {
	mu      sync.Mutex
	actions []room.Action
	done    chan struct{}
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{done: make(chan struct{})}
}

func (f *fakeRoom) Submit(ctx context.Context, a room.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, a)
	return nil
}

func (f *fakeRoom) Done() <-chan struct{} { return f.done }

func (f *fakeRoom) submitted() []room.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]room.Action(nil), f.actions...)
}

func (f *fakeRoom) waitFor(t *testing.T, n int) []room.Action {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if got := f.submitted(); len(got) >= n {
			return got
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d actions, have %d", n, len(f.submitted()))
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

var testSeat = Seat{PlayerID: "bot", Name: "Beginner-Alex", Difficulty: dealer.Easy, MinBet: 1}

func snapshot(state room.State, me room.ParticipantView, current string, dealerHand ...cards.Card) room.Snapshot {
	return room.Snapshot{
		Type:            "game_update",
		RoomID:          "r1",
		GameState:       state,
		Round:           1,
		CurrentPlayerID: current,
		Players:         []room.ParticipantView{me},
		Dealer:          room.DealerView{Hand: dealerHand},
	}
}

func startBot(t *testing.T, f *fakeRoom) (chan []byte, chan struct{}) {
	t.Helper()
	send := make(chan []byte, 16)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		Run(ctx, f, send, testSeat, config.AIParams{}, fixedRand{})
		close(done)
	}()
	return send, done
}

func TestRunReadiesBetsAndPlays(t *testing.T) {
	f := newFakeRoom()
	send, _ := startBot(t, f)

	me := room.ParticipantView{PlayerID: "bot", State: room.PWaiting, Money: 1000}
	send <- encode(t, snapshot(room.Waiting, me, ""))
	got := f.waitFor(t, 1)
	if got[0].Type != room.ActionReady {
		t.Fatalf("expected ready, got %s", got[0].Type)
	}

	me.State = room.PBetting
	send <- encode(t, snapshot(room.Betting, me, ""))
	got = f.waitFor(t, 2)
	if got[1].Type != room.ActionBet || got[1].Amount != 100 {
		t.Fatalf("expected bet of 100, got %s %d", got[1].Type, got[1].Amount)
	}

	me.State = room.PPlaying
	me.Money = 900
	me.CurrentBet = 100
	me.Hand = hand(cards.Ten, cards.Four)
	send <- encode(t, snapshot(room.Playing, me, "bot", up(cards.Nine)))
	got = f.waitFor(t, 3)
	if got[2].Type != room.ActionHit {
		t.Fatalf("expected hit on 14, got %s", got[2].Type)
	}

	me.Hand = hand(cards.Ten, cards.Four, cards.Five)
	send <- encode(t, snapshot(room.Playing, me, "bot", up(cards.Nine)))
	got = f.waitFor(t, 4)
	if got[3].Type != room.ActionStand {
		t.Fatalf("expected stand on 19, got %s", got[3].Type)
	}
}

func TestRunActsOncePerDecisionPoint(t *testing.T) {
	f := newFakeRoom()
	send, _ := startBot(t, f)

	me := room.ParticipantView{PlayerID: "bot", State: room.PWaiting, Money: 1000}
	for range 3 {
		send <- encode(t, snapshot(room.Waiting, me, ""))
	}
	f.waitFor(t, 1)
	time.Sleep(20 * time.Millisecond)
	if n := len(f.submitted()); n != 1 {
		t.Errorf("expected a single ready, got %d actions", n)
	}
}

func TestRunIgnoresOtherPlayersTurn(t *testing.T) {
	f := newFakeRoom()
	send, _ := startBot(t, f)

	me := room.ParticipantView{PlayerID: "bot", State: room.PPlaying, Money: 900, CurrentBet: 100, Hand: hand(cards.Ten, cards.Two)}
	send <- encode(t, snapshot(room.Playing, me, "someone-else", up(cards.Ten)))
	time.Sleep(20 * time.Millisecond)
	if n := len(f.submitted()); n != 0 {
		t.Errorf("expected no action while another player has the turn, got %d", n)
	}
}

func TestRunExitsOnOwnPlayerLeft(t *testing.T) {
	f := newFakeRoom()
	send, done := startBot(t, f)

	send <- encode(t, room.PlayerLeftMsg{Type: "player_left", PlayerID: "someone-else"})
	select {
	case <-done:
		t.Fatal("bot exited on another player's departure")
	case <-time.After(20 * time.Millisecond):
	}

	send <- encode(t, room.PlayerLeftMsg{Type: "player_left", PlayerID: "bot"})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after its own player_left")
	}
}

func TestRunExitsWhenRoomCloses(t *testing.T) {
	f := newFakeRoom()
	_, done := startBot(t, f)
	close(f.done)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after the room closed")
	}
}

func TestRunExitsOnClosedChannel(t *testing.T) {
	f := newFakeRoom()
	send, done := startBot(t, f)
	close(send)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not exit after channel close")
	}
}

func waitForState(t *testing.T, ch chan []byte, state room.State) room.Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case data := <-ch:
			var s room.Snapshot
			if err := json.Unmarshal(data, &s); err != nil || (s.Type != "game_update" && s.Type != "room_data") {
				continue
			}
			if s.GameState == state {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", state)
			return room.Snapshot{}
		}
	}
}

func TestPoolBotPlaysARoundWithAHuman(t *testing.T) {
	cfg := config.Defaults()
	cfg.AI = config.AIParams{DelayMinMS: 1, DelayMaxMS: 2}
	opts := room.OptionsFromConfig(cfg)
	opts.Logger = slog.New(slog.DiscardHandler)
	c := func(r cards.Rank) cards.Card { return cards.New(r, cards.Spades) }
	opts.NewDeck = func() (*cards.Deck, error) {
		// human, bot, dealer, human, bot, dealer
		return cards.NewStackedDeck(
			c(cards.Ten), c(cards.Ten), c(cards.Ten),
			c(cards.Nine), c(cards.Eight), c(cards.Seven),
		), nil
	}
	rm := room.New("r1", "Bots", opts)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go rm.Run(ctx)

	human := make(chan []byte, 256)
	if err := rm.Submit(ctx, room.JoinRequest{PlayerID: "h", Name: "Ann", Send: human}.Action()); err != nil {
		t.Fatal(err)
	}
	pool := NewPool(ctx, cfg)
	seat, err := pool.Add(ctx, rm, dealer.Medium)
	if err != nil {
		t.Fatalf("add bot: %v", err)
	}

	if err := rm.Submit(ctx, room.Action{Type: room.ActionReady, PlayerID: "h"}); err != nil {
		t.Fatal(err)
	}
	waitForState(t, human, room.Betting)
	if err := rm.Submit(ctx, room.Action{Type: room.ActionBet, PlayerID: "h", Amount: 100}); err != nil {
		t.Fatal(err)
	}
	waitForState(t, human, room.Playing)
	if err := rm.Submit(ctx, room.Action{Type: room.ActionStand, PlayerID: "h"}); err != nil {
		t.Fatal(err)
	}

	final := waitForState(t, human, room.GameOver)
	bot, ok := final.Player(seat.PlayerID)
	if !ok {
		t.Fatal("bot missing from final snapshot")
	}
	if bot.Outcome != room.Win || bot.State != room.PStand {
		t.Errorf("expected bot to stand on 18 and win, got %s/%s", bot.State, bot.Outcome)
	}
	if !bot.IsAI || bot.AIDifficulty != "medium" {
		t.Errorf("unexpected bot view %+v", bot)
	}

	if err := pool.Remove(ctx, rm, "h"); err == nil {
		t.Error("removing a human through the pool should fail")
	}
	if err := pool.Remove(ctx, rm, seat.PlayerID); err != nil {
		t.Fatalf("remove bot: %v", err)
	}
	done := make(chan struct{})
	go func() {
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bot goroutine did not exit after removal")
	}
}
