// Package gizmo implements the move/scale handle for a product overlay that
// is staged on the scene before placement is confirmed.
package gizmo

import (
	"errors"
	"math"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
)

const (
	// Sensitivity converts horizontal drag distance into scale change.
	Sensitivity = 0.005
	MinScale    = 0.1
)

var ErrNotStaged = errors.New("no staged transform")

// Transform positions the overlay. X and Y are the overlay centre in
// container-local coordinates; Width is the unscaled overlay width.
type Transform struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Scale float64 `json:"scale"`
	Width float64 `json:"width"`
}

// Patch is a partial Transform; nil fields are left unchanged.
type Patch struct {
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Scale *float64 `json:"scale,omitempty"`
	Width *float64 `json:"width,omitempty"`
}

type State int

const (
	Dormant State = iota
	Idle
	Moving
	Scaling
)

func (s State) String() string {
	switch s {
	case Dormant:
		return "dormant"
	case Idle:
		return "idle"
	case Moving:
		return "moving"
	case Scaling:
		return "scaling"
	default:
		return "unknown"
	}
}

// Gizmo is not safe for concurrent use.
type Gizmo struct {
	state     State
	transform Transform

	pointerOrigin geometry.Point
	origin        Transform
}

func New() *Gizmo {
	return &Gizmo{}
}

func (g *Gizmo) State() State { return g.state }

// Transform returns the staged transform, if any.
func (g *Gizmo) Transform() (Transform, bool) {
	if g.state == Dormant {
		return Transform{}, false
	}
	return g.transform, true
}

// Stage creates (or replaces) the staged transform.
func (g *Gizmo) Stage(t Transform) {
	if t.Scale == 0 {
		t.Scale = 1
	}
	t.Scale = math.Max(MinScale, t.Scale)
	g.transform = t
	g.state = Idle
}

// BeginMove starts a move drag at pointer p.
func (g *Gizmo) BeginMove(p geometry.Point) error {
	return g.begin(Moving, p)
}

// BeginScale starts a scale drag at pointer p.
func (g *Gizmo) BeginScale(p geometry.Point) error {
	return g.begin(Scaling, p)
}

func (g *Gizmo) begin(s State, p geometry.Point) error {
	if g.state == Dormant {
		return ErrNotStaged
	}
	g.state = s
	g.pointerOrigin = p
	g.origin = g.transform
	return nil
}

// Drag applies the pointer delta since the drag began. Outside a drag it
// returns the transform unchanged.
func (g *Gizmo) Drag(p geometry.Point) Transform {
	d := p.Sub(g.pointerOrigin)
	switch g.state {
	case Moving:
		g.transform.X = g.origin.X + d.X
		g.transform.Y = g.origin.Y + d.Y
	case Scaling:
		g.transform.Scale = math.Max(MinScale, g.origin.Scale+d.X*Sensitivity)
	}
	return g.transform
}

// End finishes a move or scale drag.
func (g *Gizmo) End() {
	if g.state == Moving || g.state == Scaling {
		g.state = Idle
	}
}

// Update merges p into the staged transform.
func (g *Gizmo) Update(p Patch) (Transform, error) {
	if g.state == Dormant {
		return Transform{}, ErrNotStaged
	}
	if p.X != nil {
		g.transform.X = *p.X
	}
	if p.Y != nil {
		g.transform.Y = *p.Y
	}
	if p.Scale != nil {
		g.transform.Scale = math.Max(MinScale, *p.Scale)
	}
	if p.Width != nil {
		g.transform.Width = *p.Width
	}
	return g.transform, nil
}

// Confirm returns the final transform and discards the staged state.
func (g *Gizmo) Confirm() (Transform, error) {
	if g.state == Dormant {
		return Transform{}, ErrNotStaged
	}
	t := g.transform
	g.reset()
	return t, nil
}

// Cancel discards the staged state.
func (g *Gizmo) Cancel() {
	g.reset()
}

func (g *Gizmo) reset() {
	*g = Gizmo{}
}

// Locate maps the transform centre, taken as a container-local point, onto
// the image displayed in container.
func Locate(t Transform, container geometry.Rect, natural geometry.Size) (geometry.NormalizedPosition, error) {
	p := container.Origin().Add(geometry.Point{X: t.X, Y: t.Y})
	return geometry.MapToImage(p, container, natural)
}
