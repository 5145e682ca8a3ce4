// Package store persists session state so history, cursor and chat survive a
// server restart.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/chat"
	"github.com/Nikhil-Joson/HomeCanvas/internal/history"
)

var ErrNotFound = errors.New("session not found")

// Snapshot is the persisted state of one session.
type Snapshot struct {
	SessionID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Revisions    []history.Revision
	Index        int
	Messages     []chat.Message
	Product      *history.Image
	ProductLabel string
	SceneLabel   string
}

// Journal stores session snapshots. Save replaces the stored state; revisions
// are immutable, so implementations only write ones they have not seen.
type Journal interface {
	Create(ctx context.Context, sessionID string) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
}
