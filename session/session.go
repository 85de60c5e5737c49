// Package session maps opaque tokens to durable participant identities so a
// player can drop a connection and come back to the same seat.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"blackjack-server/gameerrors"
)

// Session binds a token to a participant identity. RoomID is empty while the
// participant is not seated anywhere.
type Session struct {
	Token         string
	ParticipantID string
	RoomID        string
	Connected     bool
	ExpiresAt     time.Time
}

// Manager owns the token table. Disconnected sessions expire after the TTL.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewManager returns an empty manager whose detached sessions live for ttl.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		log:      slog.Default().With("tag", "session"),
	}
}

// Open creates a connected session with a fresh token and participant id.
func (m *Manager) Open() Session {
	s := &Session{
		Token:         uuid.NewString(),
		ParticipantID: uuid.NewString(),
		Connected:     true,
	}
	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	m.log.Debug("session opened", "participant", s.ParticipantID)
	return *s
}

// Resume rebinds an existing session to a new connection. It fails with
// ErrUnknownSession when the token was never issued or has expired.
func (m *Manager) Resume(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(token)
	if err != nil {
		return Session{}, err
	}
	s.Connected = true
	s.ExpiresAt = time.Time{}
	return *s, nil
}

// Get returns the session for token without changing it.
func (m *Manager) Get(token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(token)
	if err != nil {
		return Session{}, err
	}
	return *s, nil
}

// Attach records that the session's participant is seated in roomID.
func (m *Manager) Attach(token, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(token)
	if err != nil {
		return err
	}
	s.RoomID = roomID
	return nil
}

// Leave clears the session's room after an explicit leave.
func (m *Manager) Leave(token string) error {
	return m.Attach(token, "")
}

// Detach marks the session's connection as gone and starts its expiry clock.
func (m *Manager) Detach(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(token)
	if err != nil {
		return err
	}
	s.Connected = false
	s.ExpiresAt = m.now().Add(m.ttl)
	return nil
}

// lookup must be called with mu held.
func (m *Manager) lookup(token string) (*Session, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, gameerrors.ErrUnknownSession
	}
	if !s.Connected && !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, gameerrors.ErrUnknownSession
	}
	return s, nil
}

// Sweep drops detached sessions whose expiry has passed and returns how many
// were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, s := range m.sessions {
		if !s.Connected && !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(now); n > 0 {
				m.log.Info("expired sessions", "count", n)
			}
		}
	}
}
