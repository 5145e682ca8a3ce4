package gizmo

import (
	"errors"
	"math"
	"testing"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

func TestGizmo_Scale(t *testing.T) {
	tests := []struct {
		name  string
		dx    float64
		start float64
		want  float64
	}{
		{"100 units right", 100, 1.0, 1.5},
		{"100 units left", -100, 1.0, 0.5},
		{"underflow clamps", -1000, 1.0, MinScale},
		{"exactly to floor", -180, 1.0, MinScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			g.Stage(Transform{X: 50, Y: 50, Scale: tt.start, Width: 120})
			if err := g.BeginScale(geometry.Point{X: 10, Y: 10}); err != nil {
				t.Fatalf("BeginScale() error = %v", err)
			}
			got := g.Drag(geometry.Point{X: 10 + tt.dx, Y: 40})
			if math.Abs(got.Scale-tt.want) > 1e-9 {
				t.Errorf("Scale = %v, want %v", got.Scale, tt.want)
			}
			if got.X != 50 || got.Y != 50 {
				t.Errorf("scaling moved the overlay to (%v, %v)", got.X, got.Y)
			}
		})
	}
}

func TestGizmo_Move(t *testing.T) {
	g := New()
	g.Stage(Transform{X: 100, Y: 80, Scale: 1, Width: 120})

	if err := g.BeginMove(geometry.Point{X: 300, Y: 300}); err != nil {
		t.Fatalf("BeginMove() error = %v", err)
	}
	g.Drag(geometry.Point{X: 310, Y: 290})
	got := g.Drag(geometry.Point{X: 325, Y: 340})

	if got.X != 125 || got.Y != 120 {
		t.Errorf("Drag() = (%v, %v), want (125, 120)", got.X, got.Y)
	}
	if g.State() != Moving {
		t.Errorf("State() = %v, want moving", g.State())
	}
	g.End()
	if g.State() != Idle {
		t.Errorf("State() after End = %v, want idle", g.State())
	}

	// Drag outside a gesture leaves the transform alone.
	if again := g.Drag(geometry.Point{X: 0, Y: 0}); again != got {
		t.Errorf("Drag() while idle = %+v, want %+v", again, got)
	}
}

func TestGizmo_Dormant(t *testing.T) {
	g := New()
	if err := g.BeginMove(geometry.Point{}); !errors.Is(err, ErrNotStaged) {
		t.Errorf("BeginMove() error = %v, want ErrNotStaged", err)
	}
	if _, err := g.Update(Patch{}); !errors.Is(err, ErrNotStaged) {
		t.Errorf("Update() error = %v, want ErrNotStaged", err)
	}
	if _, err := g.Confirm(); !errors.Is(err, ErrNotStaged) {
		t.Errorf("Confirm() error = %v, want ErrNotStaged", err)
	}
	if _, ok := g.Transform(); ok {
		t.Error("Transform() ok while dormant")
	}
}

func TestGizmo_UpdateConfirmCancel(t *testing.T) {
	g := New()
	g.Stage(Transform{X: 10, Y: 20, Scale: 1, Width: 100})

	x, scale := 42.0, 0.01
	got, err := g.Update(Patch{X: &x, Scale: &scale})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	want := Transform{X: 42, Y: 20, Scale: MinScale, Width: 100}
	if got != want {
		t.Errorf("Update() = %+v, want %+v", got, want)
	}

	final, err := g.Confirm()
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if final != want {
		t.Errorf("Confirm() = %+v, want %+v", final, want)
	}
	if g.State() != Dormant {
		t.Errorf("State() after Confirm = %v, want dormant", g.State())
	}

	g.Stage(Transform{Scale: 2})
	g.Cancel()
	if g.State() != Dormant {
		t.Errorf("State() after Cancel = %v, want dormant", g.State())
	}
}

func TestLocate(t *testing.T) {
	container := geometry.Rect{X: 10, Y: 20, Width: 400, Height: 300}
	natural := geometry.Size{Width: 800, Height: 400}

	pos, err := Locate(Transform{X: 200, Y: 150, Scale: 1}, container, natural)
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if pos.XPercent != 50 || pos.YPercent != 50 {
		t.Errorf("Locate() = %+v, want {50 50}", pos)
	}

	if _, err := Locate(Transform{X: 200, Y: 10}, container, natural); !errors.Is(err, geometry.ErrOutOfBounds) {
		t.Errorf("Locate(letterbox) error = %v, want ErrOutOfBounds", err)
	}
}
