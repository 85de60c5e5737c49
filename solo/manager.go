package solo

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"blackjack-server/cards"
	"blackjack-server/config"
	"blackjack-server/storage"
)

// OptionsFromConfig builds table rules from the server configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	decks := cfg.DeckCount
	return Options{
		StartingBalance: cfg.StartingBalance,
		MinBet:          cfg.MinBet,
		FiveCardPayout:  cfg.FiveCardPayout,
		NewDeck:         func() (*cards.Deck, error) { return cards.NewDeck(decks) },
	}
}

type entry struct {
	mu       sync.Mutex
	table    *Table
	lastUsed time.Time
}

// Manager owns one Table per visitor. Calls for the same visitor are
// serialized; different visitors proceed in parallel.
type Manager struct {
	mu     sync.Mutex
	tables map[string]*entry
	opts   Options
	store  storage.StatsStore
	idle   time.Duration
	now    func() time.Time
	log    *slog.Logger
}

// NewManager returns a manager that records settled rounds to store. A nil
// store disables stats.
func NewManager(opts Options, store storage.StatsStore, idle time.Duration) *Manager {
	return &Manager{
		tables: make(map[string]*entry),
		opts:   opts,
		store:  store,
		idle:   idle,
		now:    time.Now,
		log:    slog.Default().With("tag", "solo"),
	}
}

func (m *Manager) get(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.tables[key]
	if !ok {
		e = &entry{table: NewTable(m.opts)}
		m.tables[key] = e
		m.log.Debug("table created", "visitor", key)
	}
	e.lastUsed = m.now()
	return e
}

// Get returns the visitor's current state, creating a table on first use.
func (m *Manager) Get(key string) Snapshot {
	e := m.get(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.State()
}

// Do runs fn against the visitor's table and returns the resulting state. A
// round finished by fn is recorded in the stats store.
func (m *Manager) Do(ctx context.Context, key string, fn func(*Table) error) (Snapshot, error) {
	e := m.get(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.table); err != nil {
		return Snapshot{}, err
	}
	if s := e.table.takeSettlement(); s != nil {
		m.record(ctx, key, e.table, s)
	}
	return e.table.State(), nil
}

func (m *Manager) record(ctx context.Context, key string, t *Table, s *Settlement) {
	if m.store == nil {
		return
	}
	r := storage.Result{
		PlayerKey: key,
		Name:      key,
		Outcome:   strings.Join(t.results, ","),
		Blackjack: s.Blackjack,
		Busted:    s.Busted,
		Net:       s.Net,
		Balance:   s.Balance,
	}
	if err := m.store.RecordResult(ctx, r); err != nil {
		m.log.Error("failed to record result", "visitor", key, "err", err)
	}
}

// History returns the visitor's counters. A visitor with no finished rounds
// gets zero counters and the starting balance as the highest balance.
func (m *Manager) History(ctx context.Context, key string) (storage.PlayerStats, error) {
	empty := storage.PlayerStats{PlayerKey: key, Name: key, HighestBalance: m.opts.StartingBalance}
	if m.store == nil {
		return empty, nil
	}
	ps, err := m.store.GetPlayerStats(ctx, key)
	if err != nil {
		return storage.PlayerStats{}, err
	}
	if ps == nil {
		return empty, nil
	}
	return *ps, nil
}

// Len returns the number of live tables.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

// Sweep drops tables idle for longer than the idle timeout.
func (m *Manager) Sweep(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, e := range m.tables {
		if now.Sub(e.lastUsed) >= m.idle {
			delete(m.tables, key)
			n++
		}
	}
	if n > 0 {
		m.log.Info("idle tables removed", "count", n)
	}
	return n
}

// Run sweeps idle tables every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
