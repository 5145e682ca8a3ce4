package engine

import (
	"encoding/json"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
)

const (
	// HandleSize is the side of the square scale handle in client pixels.
	HandleSize   = 12
	markerRadius = 8

	HitNone   = ""
	HitScene  = "scene"
	HitGizmo  = "gizmo"
	HitHandle = "gizmo-handle"
)

// DrawCommand is one overlay drawing operation for the frontend to execute
// on a Canvas2D context above the scene image.
type DrawCommand struct {
	Op          string        `json:"op"` // "rect", "circle", "product"
	ObjectID    string        `json:"objectId,omitempty"`
	Transform   []float64     `json:"transform,omitempty"`
	Rect        geometry.Rect `json:"rect"`
	Radius      float64       `json:"radius,omitempty"`
	Fill        string        `json:"fill,omitempty"`
	Stroke      string        `json:"stroke,omitempty"`
	StrokeWidth float64       `json:"strokeWidth,omitempty"`
	Opacity     float64       `json:"opacity,omitempty"`
}

// gizmoMatrix maps the unit product box (centred on the origin, width 1,
// height aspect) to client coordinates.
func gizmoMatrix(t gizmo.Transform, container geometry.Rect) Matrix2D {
	w := t.Width * t.Scale
	return Translate(container.X+t.X, container.Y+t.Y).Multiply(Scale(w, w))
}

func unitBox(aspect float64) geometry.Rect {
	return geometry.Rect{X: -0.5, Y: -aspect / 2, Width: 1, Height: aspect}
}

// gizmoBounds returns the staged overlay and its scale handle in client
// coordinates.
func gizmoBounds(t gizmo.Transform, container geometry.Rect, aspect float64) (box, handle geometry.Rect) {
	box = gizmoMatrix(t, container).TransformRect(unitBox(aspect))
	handle = geometry.Rect{
		X:      box.X + box.Width - HandleSize/2,
		Y:      box.Y + box.Height - HandleSize/2,
		Width:  HandleSize,
		Height: HandleSize,
	}
	return box, handle
}

// compileOverlay emits the overlay in painter's order: the rendered image
// frame while hovered, the drop marker, then the staged product and handle.
func (e *Engine) compileOverlay() []DrawCommand {
	var commands []DrawCommand
	bounds := e.scene.Bounds()

	if e.hovered != "" {
		if rr, err := geometry.RenderedRect(bounds, e.scene.NaturalSize()); err == nil {
			commands = append(commands, DrawCommand{
				Op:          "rect",
				ObjectID:    HitScene,
				Rect:        rr,
				Stroke:      "#2563eb",
				StrokeWidth: 2,
			})
		}
	}

	if e.preview.Visible {
		commands = append(commands, DrawCommand{
			Op:       "circle",
			ObjectID: "marker",
			Rect: geometry.Rect{
				X: bounds.X + e.preview.Position.X,
				Y: bounds.Y + e.preview.Position.Y,
			},
			Radius:  markerRadius,
			Fill:    "#2563eb",
			Opacity: 0.8,
		})
	}

	if t, ok := e.gizmo.Transform(); ok {
		box, handle := gizmoBounds(t, bounds, e.productAspect())
		commands = append(commands,
			DrawCommand{
				Op:        "product",
				ObjectID:  HitGizmo,
				Transform: gizmoMatrix(t, bounds).ToSlice(),
				Rect:      unitBox(e.productAspect()),
				Opacity:   0.9,
			},
			DrawCommand{
				Op:          "rect",
				ObjectID:    HitGizmo,
				Rect:        box,
				Stroke:      "#f59e0b",
				StrokeWidth: 1,
			},
			DrawCommand{
				Op:       "rect",
				ObjectID: HitHandle,
				Rect:     handle,
				Fill:     "#f59e0b",
			},
		)
	}
	return commands
}

// hitTest returns what lies under client point p, topmost first.
func (e *Engine) hitTest(p geometry.Point) string {
	bounds := e.scene.Bounds()
	if t, ok := e.gizmo.Transform(); ok {
		box, handle := gizmoBounds(t, bounds, e.productAspect())
		if handle.Contains(p) {
			return HitHandle
		}
		if box.Contains(p) {
			return HitGizmo
		}
	}
	if bounds.Contains(p) {
		return HitScene
	}
	return HitNone
}

func marshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
