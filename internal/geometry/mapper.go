package geometry

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned when a point falls in the letterbox padding or
	// outside the container. Callers must not mutate state on this error.
	ErrOutOfBounds = errors.New("point outside rendered image")

	// ErrInvalidGeometry is returned for empty or non-finite containers or images.
	ErrInvalidGeometry = errors.New("invalid image geometry")
)

// Rendered describes the letterboxed image area inside a container, in
// container-local coordinates.
type Rendered struct {
	Width   float64
	Height  float64
	OffsetX float64
	OffsetY float64
}

// Letterbox computes the rendered image area for the given geometry.
// Width-constrained images get vertical padding, height-constrained images
// get horizontal padding.
func Letterbox(g ImageGeometry) (Rendered, error) {
	if !extent(g.NaturalWidth) || !extent(g.NaturalHeight) || !extent(g.ContainerWidth) || !extent(g.ContainerHeight) {
		return Rendered{}, fmt.Errorf("%w: natural %vx%v, container %vx%v",
			ErrInvalidGeometry, g.NaturalWidth, g.NaturalHeight, g.ContainerWidth, g.ContainerHeight)
	}

	imageAspect := g.NaturalWidth / g.NaturalHeight
	containerAspect := g.ContainerWidth / g.ContainerHeight

	var r Rendered
	if imageAspect > containerAspect {
		r.Width = g.ContainerWidth
		r.Height = g.ContainerWidth / imageAspect
		r.OffsetY = (g.ContainerHeight - r.Height) / 2
	} else {
		r.Height = g.ContainerHeight
		r.Width = g.ContainerHeight * imageAspect
		r.OffsetX = (g.ContainerWidth - r.Width) / 2
	}
	return r, nil
}

// extent reports whether v is a usable finite, positive length.
func extent(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// MapToImage maps a client-space pointer position onto the image displayed in
// container, returning percentages of the rendered image area.
//
// Points in the letterbox padding return ErrOutOfBounds. The function is pure;
// callers pass the container rect as it is at the moment of the interaction.
func MapToImage(pointer Point, container Rect, natural Size) (NormalizedPosition, error) {
	r, err := Letterbox(NewImageGeometry(container, natural))
	if err != nil {
		return NormalizedPosition{}, err
	}

	local := container.Local(pointer)
	imageX := local.X - r.OffsetX
	imageY := local.Y - r.OffsetY

	// Written in positive form so NaN coordinates fall outside.
	if !(imageX >= 0 && imageX <= r.Width && imageY >= 0 && imageY <= r.Height) {
		return NormalizedPosition{}, ErrOutOfBounds
	}

	return NormalizedPosition{
		XPercent: imageX / r.Width * 100,
		YPercent: imageY / r.Height * 100,
	}, nil
}

// RenderedRect returns the rendered image area in client coordinates.
func RenderedRect(container Rect, natural Size) (Rect, error) {
	r, err := Letterbox(NewImageGeometry(container, natural))
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		X:      container.X + r.OffsetX,
		Y:      container.Y + r.OffsetY,
		Width:  r.Width,
		Height: r.Height,
	}, nil
}

// FromPercent is the inverse of MapToImage: it returns the client-space point
// for a normalized position under the current geometry.
func FromPercent(pos NormalizedPosition, container Rect, natural Size) (Point, error) {
	rr, err := RenderedRect(container, natural)
	if err != nil {
		return Point{}, err
	}
	return Point{
		X: rr.X + pos.XPercent/100*rr.Width,
		Y: rr.Y + pos.YPercent/100*rr.Height,
	}, nil
}
