package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blackjack-server/gameerrors"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestManager(ttl time.Duration) (*Manager, *clock) {
	m := NewManager(ttl)
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m.now = c.now
	return m, c
}

func TestOpenIssuesDistinctTokens(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	a := m.Open()
	b := m.Open()
	require.NotEmpty(t, a.Token)
	require.NotEqual(t, a.Token, b.Token)
	require.NotEqual(t, a.ParticipantID, b.ParticipantID)
	require.NotEqual(t, a.Token, a.ParticipantID)
	require.True(t, a.Connected)
	require.Equal(t, 2, m.Len())
}

func TestResumeUnknownToken(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	_, err := m.Resume("nope")
	require.ErrorIs(t, err, gameerrors.ErrUnknownSession)
	require.ErrorIs(t, err, gameerrors.ErrNotFound)
}

func TestResumeKeepsIdentityAndRoom(t *testing.T) {
	m, c := newTestManager(time.Minute)
	s := m.Open()
	require.NoError(t, m.Attach(s.Token, "room-1"))
	require.NoError(t, m.Detach(s.Token))

	got, err := m.Get(s.Token)
	require.NoError(t, err)
	require.False(t, got.Connected)
	require.Equal(t, c.t.Add(time.Minute), got.ExpiresAt)

	c.t = c.t.Add(59 * time.Second)
	resumed, err := m.Resume(s.Token)
	require.NoError(t, err)
	require.Equal(t, s.ParticipantID, resumed.ParticipantID)
	require.Equal(t, "room-1", resumed.RoomID)
	require.True(t, resumed.Connected)
	require.True(t, resumed.ExpiresAt.IsZero())
}

func TestResumeAfterExpiryFails(t *testing.T) {
	m, c := newTestManager(time.Minute)
	s := m.Open()
	require.NoError(t, m.Detach(s.Token))

	c.t = c.t.Add(time.Minute)
	_, err := m.Resume(s.Token)
	require.ErrorIs(t, err, gameerrors.ErrUnknownSession)
	require.Equal(t, 0, m.Len())
}

func TestLeaveClearsRoom(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	s := m.Open()
	require.NoError(t, m.Attach(s.Token, "room-1"))
	require.NoError(t, m.Leave(s.Token))
	got, err := m.Get(s.Token)
	require.NoError(t, err)
	require.Empty(t, got.RoomID)

	require.ErrorIs(t, m.Attach("nope", "room-1"), gameerrors.ErrUnknownSession)
	require.ErrorIs(t, m.Detach("nope"), gameerrors.ErrUnknownSession)
}

func TestSweepRemovesOnlyExpiredDetachedSessions(t *testing.T) {
	m, c := newTestManager(time.Minute)
	live := m.Open()
	gone := m.Open()
	fresh := m.Open()
	require.NoError(t, m.Detach(gone.Token))
	c.t = c.t.Add(30 * time.Second)
	require.NoError(t, m.Detach(fresh.Token))

	require.Equal(t, 0, m.Sweep(c.t.Add(29*time.Second)))
	require.Equal(t, 1, m.Sweep(c.t.Add(30*time.Second)))
	require.Equal(t, 1, m.Sweep(c.t.Add(time.Hour)))

	_, err := m.Get(live.Token)
	require.NoError(t, err, "connected sessions never expire")
	require.Equal(t, 1, m.Len())
}

func TestRunStopsOnCancel(t *testing.T) {
	m := NewManager(time.Millisecond)
	s := m.Open()
	require.NoError(t, m.Detach(s.Token))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
