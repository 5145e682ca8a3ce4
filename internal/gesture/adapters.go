package gesture

import (
	"time"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

// PointerAdapter translates native drag-and-drop callbacks into events.
// Browsers fire drop and then dragend for a successful drop; a dragend with
// no preceding drop is treated as a release at the last known position.
type PointerAdapter struct {
	c   *Controller
	now func() time.Time
}

func NewPointerAdapter(c *Controller) *PointerAdapter {
	return &PointerAdapter{c: c, now: time.Now}
}

func (a *PointerAdapter) DragStart(p geometry.Point) Outcome {
	return a.c.Handle(Event{Kind: KindStart, Modality: Pointer, Position: p, Time: a.now()})
}

func (a *PointerAdapter) DragOver(p geometry.Point) Outcome {
	return a.c.Handle(Event{Kind: KindMove, Modality: Pointer, Position: p, Time: a.now()})
}

func (a *PointerAdapter) Drop(p geometry.Point) Outcome {
	return a.c.Handle(Event{Kind: KindEnd, Modality: Pointer, Position: p, Time: a.now()})
}

// DragEnd finishes a drag that was not dropped. Some browsers report (0,0)
// for dragend, so the last dragover position is used instead.
func (a *PointerAdapter) DragEnd() Outcome {
	s, ok := a.c.Session()
	if !ok || s.Modality != Pointer {
		return OutcomeNone
	}
	return a.c.Handle(Event{Kind: KindEnd, Modality: Pointer, Position: s.Current, Time: a.now()})
}

// TouchAdapter translates touch callbacks into events. Only the first touch
// point of a gesture is tracked; additional fingers are ignored.
type TouchAdapter struct {
	c        *Controller
	now      func() time.Time
	tracking bool
	touchID  int
}

func NewTouchAdapter(c *Controller) *TouchAdapter {
	return &TouchAdapter{c: c, now: time.Now}
}

func (a *TouchAdapter) TouchStart(id int, p geometry.Point) Outcome {
	if a.tracking && a.c.State() == StateActive {
		return OutcomeNone
	}
	out := a.c.Handle(Event{Kind: KindStart, Modality: Touch, Position: p, Time: a.now()})
	if s, ok := a.c.Session(); ok && s.Modality == Touch {
		a.tracking = true
		a.touchID = id
	}
	return out
}

func (a *TouchAdapter) TouchMove(id int, p geometry.Point) Outcome {
	if !a.tracks(id) {
		return OutcomeNone
	}
	return a.c.Handle(Event{Kind: KindMove, Modality: Touch, Position: p, Time: a.now()})
}

func (a *TouchAdapter) TouchEnd(id int, p geometry.Point) Outcome {
	if !a.tracks(id) {
		return OutcomeNone
	}
	a.tracking = false
	return a.c.Handle(Event{Kind: KindEnd, Modality: Touch, Position: p, Time: a.now()})
}

func (a *TouchAdapter) TouchCancel(id int) Outcome {
	if !a.tracks(id) {
		return OutcomeNone
	}
	a.tracking = false
	return a.c.Handle(Event{Kind: KindCancel, Modality: Touch, Time: a.now()})
}

func (a *TouchAdapter) tracks(id int) bool {
	return a.tracking && a.touchID == id
}
