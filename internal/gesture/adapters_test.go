package gesture

import (
	"testing"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

func TestAdapters_PointerAndTouchConverge(t *testing.T) {
	path := []geometry.Point{{X: 600, Y: 400}, {X: 300, Y: 200}, {X: 150, Y: 120}, {X: 110, Y: 95}}

	pc, prec, _ := newTestController()
	pointer := NewPointerAdapter(pc)
	pointer.DragStart(path[0])
	for _, p := range path[1:] {
		pointer.DragOver(p)
	}
	pointer.Drop(path[len(path)-1])
	pointer.DragEnd()

	tc, trec, _ := newTestController()
	touch := NewTouchAdapter(tc)
	touch.TouchStart(7, path[0])
	for _, p := range path[1:] {
		touch.TouchMove(7, p)
	}
	touch.TouchEnd(7, path[len(path)-1])

	if len(prec.placements) != 1 || len(trec.placements) != 1 {
		t.Fatalf("placements = %d pointer, %d touch, want 1 each", len(prec.placements), len(trec.placements))
	}
	pe, te := prec.placements[0], trec.placements[0]
	if pe.Modality != Pointer || te.Modality != Touch {
		t.Errorf("modalities = %v, %v", pe.Modality, te.Modality)
	}
	pe.Modality, te.Modality = "", ""
	if pe != te {
		t.Errorf("pointer placement %+v != touch placement %+v", pe, te)
	}
}

func TestPointerAdapter_DragEndWithoutDrop(t *testing.T) {
	c, rec, _ := newTestController()
	a := NewPointerAdapter(c)

	a.DragStart(geometry.Point{X: 600, Y: 600})
	a.DragOver(geometry.Point{X: 210, Y: 170})
	out := a.DragEnd()

	if out != OutcomeDropped {
		t.Fatalf("DragEnd() = %v, want dropped", out)
	}
	if len(rec.placements) != 1 {
		t.Errorf("placements = %d, want 1", len(rec.placements))
	}
	if out := a.DragEnd(); out != OutcomeNone {
		t.Errorf("second DragEnd() = %v, want none", out)
	}
}

func TestTouchAdapter_IgnoresExtraFingers(t *testing.T) {
	c, rec, lock := newTestController()
	a := NewTouchAdapter(c)

	a.TouchStart(1, geometry.Point{X: 210, Y: 170})
	a.TouchStart(2, geometry.Point{X: 900, Y: 900})
	a.TouchMove(2, geometry.Point{X: 900, Y: 900})
	if out := a.TouchEnd(2, geometry.Point{X: 900, Y: 900}); out != OutcomeNone {
		t.Errorf("TouchEnd(second finger) = %v, want none", out)
	}

	if out := a.TouchEnd(1, geometry.Point{X: 210, Y: 170}); out != OutcomeDropped {
		t.Fatalf("TouchEnd(first finger) = %v, want dropped", out)
	}
	if len(rec.placements) != 1 {
		t.Errorf("placements = %d, want 1", len(rec.placements))
	}
	if lock.locks != 1 || lock.unlocks != 1 {
		t.Errorf("locks = %d, unlocks = %d, want 1/1", lock.locks, lock.unlocks)
	}
}

func TestTouchAdapter_Cancel(t *testing.T) {
	c, rec, lock := newTestController()
	a := NewTouchAdapter(c)

	a.TouchStart(3, geometry.Point{X: 210, Y: 170})
	if out := a.TouchCancel(3); out != OutcomeCancelled {
		t.Fatalf("TouchCancel() = %v, want cancelled", out)
	}
	if len(rec.cancels) != 1 || rec.cancels[0] != ReasonInterrupted {
		t.Errorf("cancels = %v, want [interrupted]", rec.cancels)
	}
	if lock.unlocks != 1 {
		t.Errorf("unlocks = %d, want 1", lock.unlocks)
	}

	// A fresh touch is accepted after cancellation.
	a.TouchStart(4, geometry.Point{X: 210, Y: 170})
	if c.State() != StateActive {
		t.Errorf("State() = %v, want active", c.State())
	}
}
