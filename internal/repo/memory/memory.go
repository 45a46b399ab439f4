package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/tlscheck/internal/domain"
	"github.com/hamed0406/tlscheck/internal/repo"
)

// Store keeps watch targets, the latest outcome per host and alert state
// in process memory. Nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	targets []domain.WatchTarget
	index   map[string]struct{}
	latest  map[string]domain.Outcome
	alerts  map[string]repo.AlertRecord
}

func New() *Store {
	return &Store{
		index:  make(map[string]struct{}),
		latest: make(map[string]domain.Outcome),
		alerts: make(map[string]repo.AlertRecord),
	}
}

func (m *Store) Add(ctx context.Context, t domain.WatchTarget) error {
	if t.Host == "" {
		return errors.New("empty host")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[t.Host]; ok {
		return repo.ErrDuplicate
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.index[t.Host] = struct{}{}
	m.targets = append(m.targets, t)
	return nil
}

// List returns targets in insertion order.
func (m *Store) List(ctx context.Context) ([]domain.WatchTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.WatchTarget, len(m.targets))
	copy(out, m.targets)
	return out, nil
}

// Append records o unless a newer outcome for the same host is already stored.
func (m *Store) Append(ctx context.Context, o domain.Outcome) error {
	host := o.Hostname()
	if host == "" {
		return errors.New("outcome without hostname")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.latest[host]; ok && cur.CheckedAt().After(o.CheckedAt()) {
		return nil
	}
	m.latest[host] = o
	return nil
}

func (m *Store) Latest(ctx context.Context) ([]domain.Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Outcome, 0, len(m.latest))
	for _, o := range m.latest {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname() < out[j].Hostname() })
	return out, nil
}

func (m *Store) Get(ctx context.Context, host string) (*repo.AlertRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.alerts[host]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Store) Set(ctx context.Context, host string, healthy bool, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.alerts[host]
	rec.Host = host
	rec.LastHealthy = healthy
	if !sentAt.IsZero() {
		ts := sentAt
		rec.LastSentAt = &ts
	}
	m.alerts[host] = rec
	return nil
}
