package gesture

import (
	"sync"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

// DropTarget is a region that accepts drops. Bounds and NaturalSize are read
// live on every hit-test and at release time.
type DropTarget interface {
	ID() string
	Bounds() geometry.Rect
	NaturalSize() geometry.Size
	Enabled() bool
}

// Region is a mutable DropTarget whose layout is pushed in by the host (a
// browser reporting its bounding rect, or a websocket client sending
// layout updates).
type Region struct {
	id string

	mu      sync.RWMutex
	bounds  geometry.Rect
	natural geometry.Size
	enabled bool
}

// NewRegion creates an enabled region with empty layout.
func NewRegion(id string) *Region {
	return &Region{id: id, enabled: true}
}

func (r *Region) ID() string { return r.id }

func (r *Region) Bounds() geometry.Rect {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bounds
}

func (r *Region) NaturalSize() geometry.Size {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.natural
}

// Enabled reports whether the region accepts drops. A region with no image
// loaded is never enabled.
func (r *Region) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled && !r.natural.IsEmpty()
}

// SetLayout replaces the region's client-space bounds.
func (r *Region) SetLayout(bounds geometry.Rect) {
	r.mu.Lock()
	r.bounds = bounds
	r.mu.Unlock()
}

// SetNaturalSize records the intrinsic size of the image shown in the region.
func (r *Region) SetNaturalSize(natural geometry.Size) {
	r.mu.Lock()
	r.natural = natural
	r.mu.Unlock()
}

func (r *Region) SetEnabled(enabled bool) {
	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()
}

// ScrollLock suppresses the host's default touch scrolling while a touch
// gesture is active.
type ScrollLock interface {
	Lock()
	Unlock()
}

type noopScrollLock struct{}

func (noopScrollLock) Lock()   {}
func (noopScrollLock) Unlock() {}
