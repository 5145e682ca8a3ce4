package gesture

import (
	"errors"
	"log/slog"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

// Listener receives controller notifications. Nil fields are skipped.
type Listener struct {
	// OnHover fires when the hovered target changes; id is "" when the
	// gesture leaves all targets.
	OnHover     func(id string)
	OnPreview   func(Preview)
	OnPlacement func(PlacementEvent)
	OnCancel    func(CancelReason)
}

type listenerEntry struct {
	id uint32
	l  Listener
}

// ListenerHandle allows removing a registered listener.
type ListenerHandle struct {
	id uint32
	c  *Controller
}

// Remove unregisters the listener so it no longer fires.
func (h ListenerHandle) Remove() {
	if h.c == nil {
		return
	}
	s := h.c.listeners
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = listenerEntry{}
			h.c.listeners = s[:len(s)-1]
			return
		}
	}
}

// Controller is the drag state machine shared by every input modality.
// It is not safe for concurrent use; the owner serializes calls.
type Controller struct {
	targets   []DropTarget
	scroll    ScrollLock
	session   *DragSession
	scrolling bool

	listeners []listenerEntry
	nextID    uint32
}

// NewController creates an idle controller. A nil scroll lock is allowed for
// hosts that have no page scrolling to suppress.
func NewController(scroll ScrollLock) *Controller {
	if scroll == nil {
		scroll = noopScrollLock{}
	}
	return &Controller{scroll: scroll}
}

// Listen registers l and returns a handle for removing it.
func (c *Controller) Listen(l Listener) ListenerHandle {
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: c.nextID, l: l})
	return ListenerHandle{id: c.nextID, c: c}
}

// AddTarget registers a drop target. Later targets sit on top of earlier ones
// for hit-testing.
func (c *Controller) AddTarget(t DropTarget) {
	c.targets = append(c.targets, t)
}

// RemoveTarget unregisters a drop target. An active gesture hovering it is
// cancelled.
func (c *Controller) RemoveTarget(id string) {
	for i, t := range c.targets {
		if t.ID() == id {
			c.targets = append(c.targets[:i], c.targets[i+1:]...)
			break
		}
	}
	if c.session != nil && c.session.Hovered != nil && c.session.Hovered.ID() == id {
		c.Cancel(ReasonTargetRemoved)
	}
}

// State reports whether a gesture is in progress.
func (c *Controller) State() State {
	if c.session != nil {
		return StateActive
	}
	return StateIdle
}

// Session returns a copy of the active drag session.
func (c *Controller) Session() (DragSession, bool) {
	if c.session == nil {
		return DragSession{}, false
	}
	return *c.session, true
}

// Handle feeds one event through the state machine.
func (c *Controller) Handle(ev Event) Outcome {
	switch ev.Kind {
	case KindStart:
		c.start(ev)
	case KindMove:
		if c.owns(ev) {
			c.move(ev.Position)
		}
	case KindEnd:
		if c.owns(ev) {
			return c.end(ev.Position)
		}
	case KindCancel:
		if c.owns(ev) && c.Cancel(ReasonInterrupted) {
			return OutcomeCancelled
		}
	}
	return OutcomeNone
}

// Cancel aborts the active gesture, clearing hover and preview state. It
// reports whether a gesture was active.
func (c *Controller) Cancel(reason CancelReason) bool {
	if c.session == nil {
		return false
	}
	defer c.finish()
	c.emitCancel(reason)
	return true
}

func (c *Controller) owns(ev Event) bool {
	return c.session != nil && c.session.Modality == ev.Modality
}

func (c *Controller) start(ev Event) {
	if c.session != nil {
		if c.session.Modality != ev.Modality {
			slog.Debug("ignoring gesture from second modality", "active", c.session.Modality, "incoming", ev.Modality)
			return
		}
		c.Cancel(ReasonSuperseded)
	}

	c.session = &DragSession{
		Origin:   ev.Position,
		Current:  ev.Position,
		Modality: ev.Modality,
		Started:  ev.Time,
	}
	if ev.Modality == Touch {
		c.scroll.Lock()
		c.scrolling = true
	}
	defer func() {
		if r := recover(); r != nil {
			c.abandon()
			panic(r)
		}
	}()
	c.move(ev.Position)
}

func (c *Controller) move(p geometry.Point) {
	s := c.session
	s.Current = p

	target := c.hitTest(p)
	if !sameTarget(target, s.Hovered) {
		s.Hovered = target
		c.emitHover(targetID(target))
	}

	if target == nil {
		c.emitPreview(Preview{})
		return
	}
	c.emitPreview(Preview{
		TargetID: target.ID(),
		Position: target.Bounds().Local(p),
		Visible:  true,
	})
}

func (c *Controller) end(p geometry.Point) Outcome {
	defer c.finish()
	c.session.Current = p

	target := c.hitTest(p)
	if target == nil {
		c.emitCancel(ReasonReleasedOutside)
		return OutcomeCancelled
	}

	// Geometry is read at release time; layout may have changed mid-drag.
	bounds := target.Bounds()
	pct, err := geometry.MapToImage(p, bounds, target.NaturalSize())
	if err != nil {
		if errors.Is(err, geometry.ErrOutOfBounds) {
			slog.Debug("drop outside rendered image", "target", target.ID(), "x", p.X, "y", p.Y)
		} else {
			slog.Warn("drop target has unusable geometry", "target", target.ID(), "error", err)
		}
		return OutcomeMissed
	}

	c.emitPlacement(PlacementEvent{
		TargetID:          target.ID(),
		ContainerPosition: bounds.Local(p),
		ImagePercent:      pct,
		Modality:          c.session.Modality,
	})
	return OutcomeDropped
}

// finish tears down the session on every exit path. The scroll lock goes
// first so a panicking listener cannot leave scrolling suppressed.
func (c *Controller) finish() {
	s := c.session
	c.abandon()
	if s != nil && s.Hovered != nil {
		c.emitHover("")
		c.emitPreview(Preview{})
	}
}

// abandon releases scroll suppression and drops the session without
// notifying listeners.
func (c *Controller) abandon() {
	if c.scrolling {
		c.scrolling = false
		c.scroll.Unlock()
	}
	c.session = nil
}

// hitTest returns the topmost enabled target containing p, or nil.
func (c *Controller) hitTest(p geometry.Point) DropTarget {
	for i := len(c.targets) - 1; i >= 0; i-- {
		t := c.targets[i]
		if t.Enabled() && t.Bounds().Contains(p) {
			return t
		}
	}
	return nil
}

func sameTarget(a, b DropTarget) bool {
	return targetID(a) == targetID(b)
}

func targetID(t DropTarget) string {
	if t == nil {
		return ""
	}
	return t.ID()
}

// snapshot returns the listeners to notify so a listener can remove itself
// while being called.
func (c *Controller) snapshot() []listenerEntry {
	return append([]listenerEntry(nil), c.listeners...)
}

func (c *Controller) emitHover(id string) {
	for _, e := range c.snapshot() {
		if e.l.OnHover != nil {
			e.l.OnHover(id)
		}
	}
}

func (c *Controller) emitPreview(p Preview) {
	for _, e := range c.snapshot() {
		if e.l.OnPreview != nil {
			e.l.OnPreview(p)
		}
	}
}

func (c *Controller) emitPlacement(ev PlacementEvent) {
	for _, e := range c.snapshot() {
		if e.l.OnPlacement != nil {
			e.l.OnPlacement(ev)
		}
	}
}

func (c *Controller) emitCancel(reason CancelReason) {
	for _, e := range c.snapshot() {
		if e.l.OnCancel != nil {
			e.l.OnCancel(reason)
		}
	}
}
