package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

// Memory is a Journal kept in process memory. It is used when no database is
// configured and in tests.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*Snapshot
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*Snapshot)}
}

func (m *Memory) Create(_ context.Context, sessionID string) error {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		m.sessions[sessionID] = &Snapshot{SessionID: sessionID, Index: -1, CreatedAt: now, UpdatedAt: now}
	}
	return nil
}

func (m *Memory) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

func (m *Memory) Save(_ context.Context, snap *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.sessions[snap.SessionID]
	if !ok {
		return ErrNotFound
	}
	c := clone(snap)
	c.CreatedAt = prev.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	m.sessions[snap.SessionID] = c
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// clone copies the slices so callers cannot mutate stored state. Image bytes
// are shared; they are never written after creation.
func clone(s *Snapshot) *Snapshot {
	c := *s
	c.Revisions = append([]history.Revision(nil), s.Revisions...)
	c.Messages = append([]chat.Message(nil), s.Messages...)
	if s.Product != nil {
		p := *s.Product
		c.Product = &p
	}
	return &c
}
