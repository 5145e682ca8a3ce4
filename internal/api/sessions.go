// Package api exposes studio sessions over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Nikhil-Joson/HomeCanvas/internal/store"
	"github.com/Nikhil-Joson/HomeCanvas/internal/studio"
	"github.com/Nikhil-Joson/HomeCanvas/internal/typeid"
)

var ErrSessionNotFound = errors.New("session not found")

// loadTimeout bounds a journal load shared by concurrent lookups.
const loadTimeout = 30 * time.Second

type loadedStudio struct {
	studio   *studio.Studio
	lastUsed time.Time
}

// Manager keeps one live studio per session, loading it from the journal on
// first use. Concurrent lookups of the same unloaded session share one load.
type Manager struct {
	journal store.Journal
	opts    studio.Options
	now     func() time.Time
	loads   singleflight.Group

	mu      sync.Mutex
	studios map[string]*loadedStudio
}

// NewManager creates a manager. opts.Journal is overridden with journal.
func NewManager(journal store.Journal, opts studio.Options) *Manager {
	opts.Journal = journal
	return &Manager{
		journal: journal,
		opts:    opts,
		now:     time.Now,
		studios: make(map[string]*loadedStudio),
	}
}

func (m *Manager) Create(ctx context.Context) (*studio.Studio, error) {
	id := typeid.NewSessionID()
	if err := m.journal.Create(ctx, id); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	st := studio.New(id, m.opts)
	m.mu.Lock()
	m.studios[id] = &loadedStudio{studio: st, lastUsed: m.now()}
	m.mu.Unlock()

	slog.Info("session created", "session", id)
	return st, nil
}

func (m *Manager) Get(ctx context.Context, id string) (*studio.Studio, error) {
	if err := typeid.Validate(id, typeid.PrefixSession); err != nil {
		return nil, ErrSessionNotFound
	}

	if st := m.lookup(id); st != nil {
		return st, nil
	}

	v, err, _ := m.loads.Do(id, func() (any, error) {
		if st := m.lookup(id); st != nil {
			return st, nil
		}
		return m.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*studio.Studio), nil
}

// lookup returns the loaded studio for id and marks it used.
func (m *Manager) lookup(id string) *studio.Studio {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.studios[id]
	if !ok {
		return nil
	}
	ls.lastUsed = m.now()
	return ls.studio
}

// load restores id from the journal without holding the manager lock. The
// load is shared, so it does not inherit one caller's cancellation.
func (m *Manager) load(ctx context.Context, id string) (*studio.Studio, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	snap, err := m.journal.Load(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	st := studio.New(id, m.opts)
	if err := st.Restore(ctx, snap); err != nil {
		st.Close()
		return nil, fmt.Errorf("restore session %s: %w", id, err)
	}

	m.mu.Lock()
	if ls, ok := m.studios[id]; ok {
		ls.lastUsed = m.now()
		m.mu.Unlock()
		st.Close()
		return ls.studio, nil
	}
	m.studios[id] = &loadedStudio{studio: st, lastUsed: m.now()}
	m.mu.Unlock()

	slog.Info("session restored", "session", id, "revisions", len(snap.Revisions))
	return st, nil
}

// EvictIdle closes studios unused for longer than maxIdle that have no
// connected clients and no generation in flight. Their state stays in the
// journal and is restored on the next lookup.
func (m *Manager) EvictIdle(maxIdle time.Duration) []string {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var evicted []*studio.Studio
	var ids []string
	for id, ls := range m.studios {
		if ls.lastUsed.After(cutoff) || !ls.studio.Idle() {
			continue
		}
		delete(m.studios, id)
		evicted = append(evicted, ls.studio)
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, st := range evicted {
		st.Close()
	}
	if len(ids) > 0 {
		slog.Info("evicted idle sessions", "count", len(ids))
	}
	return ids
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.journal.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("delete session: %w", err)
	}

	m.mu.Lock()
	ls, ok := m.studios[id]
	delete(m.studios, id)
	m.mu.Unlock()
	if ok {
		ls.studio.Close()
	}
	return nil
}

func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.journal.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// Close releases every loaded studio. Their state is already journaled.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ls := range m.studios {
		ls.studio.Close()
		delete(m.studios, id)
	}
}
