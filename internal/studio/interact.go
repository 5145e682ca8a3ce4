package studio

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
)

// HandleGesture feeds one input event to the drag state machine. When the
// event drops the product on the scene the placement is returned; the caller
// passes its ImagePercent to Place.
func (s *Studio) HandleGesture(ev gesture.Event) (gesture.Outcome, *gesture.PlacementEvent, error) {
	if err := s.lock(); err != nil {
		return gesture.OutcomeNone, nil, err
	}
	defer s.unlock()

	s.dropped = nil
	out := s.gestures.Handle(ev)
	dropped := s.dropped
	s.dropped = nil
	return out, dropped, nil
}

// StageProduct places the overlay for the loaded product.
func (s *Studio) StageProduct(t gizmo.Transform) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if s.product == nil {
		return ErrNoProduct
	}
	s.gizmo.Stage(t)
	s.gizmoChanged()
	return nil
}

// BeginMove starts dragging the overlay from client point p.
func (s *Studio) BeginMove(p geometry.Point) error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error { return g.BeginMove(p) })
}

// BeginScale starts resizing the overlay from client point p.
func (s *Studio) BeginScale(p geometry.Point) error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error { return g.BeginScale(p) })
}

// DragGizmo continues a move or scale drag.
func (s *Studio) DragGizmo(p geometry.Point) error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error {
		g.Drag(p)
		return nil
	})
}

// EndGizmo finishes a move or scale drag.
func (s *Studio) EndGizmo() error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error {
		g.End()
		return nil
	})
}

// PatchGizmo merges p into the staged transform.
func (s *Studio) PatchGizmo(p gizmo.Patch) error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error {
		_, err := g.Update(p)
		return err
	})
}

// CancelGizmo discards the staged overlay.
func (s *Studio) CancelGizmo() error {
	return s.gizmoOp(func(g *gizmo.Gizmo) error {
		g.Cancel()
		return nil
	})
}

func (s *Studio) gizmoOp(fn func(*gizmo.Gizmo) error) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()
	if err := fn(s.gizmo); err != nil {
		return err
	}
	s.gizmoChanged()
	return nil
}

func (s *Studio) gizmoChanged() {
	s.pending = append(s.pending, Notice{Type: NoticeState, Data: s.stateLocked()})
}

// ConfirmGizmo turns the staged overlay into a placement at its centre. An
// overlay centred on the letterbox padding returns geometry.ErrOutOfBounds
// and stays staged.
func (s *Studio) ConfirmGizmo(ctx context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	t, ok := s.gizmo.Transform()
	if !ok {
		s.unlock()
		return gizmo.ErrNotStaged
	}
	if s.busy {
		s.unlock()
		return ErrBusy
	}
	pos, err := gizmo.Locate(t, s.scene.Bounds(), s.scene.NaturalSize())
	if err != nil {
		if errors.Is(err, geometry.ErrOutOfBounds) {
			slog.Debug("staged overlay outside image", "session", s.id, "x", t.X, "y", t.Y)
		}
		s.unlock()
		return err
	}
	s.gizmo.Confirm()
	s.gizmoChanged()
	s.unlock()

	return s.Place(ctx, pos)
}
