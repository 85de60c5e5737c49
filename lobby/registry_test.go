package lobby

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blackjack-server/config"
	"blackjack-server/gameerrors"
	"blackjack-server/room"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.Defaults()
	cfg.MaxRoomNameLength = 10
	cfg.EmptyRoomGraceSec = 30
	opts := room.OptionsFromConfig(cfg)
	opts.MaxPlayers = 2
	opts.Logger = slog.New(slog.DiscardHandler)
	r := NewRegistry(cfg, opts)
	t.Cleanup(r.Shutdown)
	return r
}

func collect(r *Registry) []room.Summary {
	return slices.Collect(r.List())
}

func TestCreateValidatesName(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Create("much too long a name")
	require.ErrorIs(t, err, gameerrors.ErrValidation)
	require.Equal(t, 0, r.Len())

	rm, err := r.Create("  Table 1 ")
	require.NoError(t, err)
	require.Equal(t, "Table 1", rm.Name)
	require.NotEmpty(t, rm.ID)

	got, err := r.Get(rm.ID)
	require.NoError(t, err)
	require.Same(t, rm, got)
}

func TestCreateNamesBlankRooms(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Create("Table")
	require.NoError(t, err)
	for i, name := range []string{"", "   "} {
		rm, err := r.Create(name)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Room %d", i+2), rm.Name)
	}
	require.Equal(t, 3, r.Len())
}

func TestGetUnknownRoom(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Get("nope")
	require.ErrorIs(t, err, gameerrors.ErrRoomNotFound)
	require.ErrorIs(t, err, gameerrors.ErrNotFound)
}

func TestListIsLiveAndRestartable(t *testing.T) {
	r := newTestRegistry(t)
	a, err := r.Create("A")
	require.NoError(t, err)

	seq := r.List()
	first := slices.Collect(seq)
	require.Len(t, first, 1)
	require.Equal(t, room.Summary{RoomID: a.ID, RoomName: "A", MaxPlayers: 2, GameState: room.Waiting}, first[0])

	b, err := r.Create("B")
	require.NoError(t, err)
	second := slices.Collect(seq)
	require.Len(t, second, 2, "the same sequence must reflect rooms created since")
	require.Equal(t, b.ID, second[1].RoomID)

	require.True(t, r.Remove(a.ID))
	third := slices.Collect(seq)
	require.Len(t, third, 1)
	require.Equal(t, b.ID, third[0].RoomID)
}

func TestListStopsEarly(t *testing.T) {
	r := newTestRegistry(t)
	for _, n := range []string{"A", "B", "C"} {
		_, err := r.Create(n)
		require.NoError(t, err)
	}
	count := 0
	for range r.List() {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}

func TestJoin(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	_, err := r.Join(ctx, "missing", room.JoinRequest{PlayerID: "p1", Name: "Ann"})
	require.ErrorIs(t, err, gameerrors.ErrRoomNotFound)

	rm, err := r.Create("A")
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		_, err := r.Join(ctx, rm.ID, room.JoinRequest{PlayerID: id, Name: id})
		require.NoError(t, err)
	}
	_, err = r.Join(ctx, rm.ID, room.JoinRequest{PlayerID: "p3", Name: "p3"})
	require.ErrorIs(t, err, gameerrors.ErrRoomFull)

	summaries := collect(r)
	require.Len(t, summaries, 1)
	require.Equal(t, 2, summaries[0].PlayerCount)
}

func TestRemoveClosesRoom(t *testing.T) {
	r := newTestRegistry(t)
	rm, err := r.Create("A")
	require.NoError(t, err)

	require.True(t, r.Remove(rm.ID))
	require.False(t, r.Remove(rm.ID))
	select {
	case <-rm.Done():
	case <-time.After(time.Second):
		t.Fatal("removed room did not stop")
	}
}

func TestSweepReapsEmptyRoomsAfterGrace(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	empty, err := r.Create("Empty")
	require.NoError(t, err)
	busy, err := r.Create("Busy")
	require.NoError(t, err)
	_, err = r.Join(ctx, busy.ID, room.JoinRequest{PlayerID: "p1", Name: "Ann"})
	require.NoError(t, err)

	now := time.Now()
	require.Equal(t, 0, r.Sweep(now), "grace period starts at first sighting")
	require.Equal(t, 0, r.Sweep(now.Add(29*time.Second)))
	require.Equal(t, 1, r.Sweep(now.Add(30*time.Second)))

	_, err = r.Get(empty.ID)
	require.ErrorIs(t, err, gameerrors.ErrRoomNotFound)
	_, err = r.Get(busy.ID)
	require.NoError(t, err)
}

func TestSweepIgnoresAIOnlyOccupancy(t *testing.T) {
	r := newTestRegistry(t)
	rm, err := r.Create("Bots")
	require.NoError(t, err)
	_, err = r.Join(context.Background(), rm.ID, room.JoinRequest{PlayerID: "bot", Name: "Bot", IsAI: true})
	require.NoError(t, err)

	now := time.Now()
	r.Sweep(now)
	require.Equal(t, 1, r.Sweep(now.Add(time.Minute)))
	require.Equal(t, 0, r.Len())
}

func TestSweepResetsWhenHumanReturns(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	rm, err := r.Create("A")
	require.NoError(t, err)

	now := time.Now()
	r.Sweep(now)
	_, err = r.Join(ctx, rm.ID, room.JoinRequest{PlayerID: "p1", Name: "Ann"})
	require.NoError(t, err)
	require.Equal(t, 0, r.Sweep(now.Add(time.Minute)))

	require.NoError(t, rm.Submit(ctx, room.Action{Type: room.ActionLeave, PlayerID: "p1"}))
	require.Equal(t, 0, r.Sweep(now.Add(2*time.Minute)), "grace restarts after the room empties again")
	require.Equal(t, 1, r.Sweep(now.Add(3*time.Minute)))
}
