package geometry

// Point is a position in client (viewport) coordinates unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Size is the natural (intrinsic) pixel size of an image.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Aspect returns width/height. Callers must check IsEmpty first.
func (s Size) Aspect() float64 {
	return s.Width / s.Height
}

// IsEmpty checks if the size has zero or negative area.
func (s Size) IsEmpty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Rect represents an axis-aligned box in client coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Origin returns the top-left corner.
func (r Rect) Origin() Point {
	return Point{X: r.X, Y: r.Y}
}

// Center returns the center point of the rect.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Local converts a client point to coordinates relative to the rect origin.
func (r Rect) Local(p Point) Point {
	return p.Sub(r.Origin())
}

// ImageGeometry describes how an image of a natural size is displayed inside a
// container under uniform scale-to-fit. It is recomputed for every interaction.
type ImageGeometry struct {
	NaturalWidth    float64 `json:"naturalWidth"`
	NaturalHeight   float64 `json:"naturalHeight"`
	ContainerWidth  float64 `json:"containerWidth"`
	ContainerHeight float64 `json:"containerHeight"`
}

// NewImageGeometry builds the geometry for natural inside container.
func NewImageGeometry(container Rect, natural Size) ImageGeometry {
	return ImageGeometry{
		NaturalWidth:    natural.Width,
		NaturalHeight:   natural.Height,
		ContainerWidth:  container.Width,
		ContainerHeight: container.Height,
	}
}

// NormalizedPosition is a point on the rendered image expressed in percent of
// the rendered width and height.
type NormalizedPosition struct {
	XPercent float64 `json:"xPercent"`
	YPercent float64 `json:"yPercent"`
}
