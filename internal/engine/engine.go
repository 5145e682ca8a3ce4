// Package engine is the in-browser half of the studio. It owns the drag
// controller, the scene drop target and the placement overlay, and exchanges
// JSON with the frontend so the same state machines run on both sides of
// the websocket.
package engine

import (
	"errors"

	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
)

// SceneTargetID names the scene drop target.
const SceneTargetID = "scene"

// Notification is a controller event queued for the frontend.
type Notification struct {
	Type      string                  `json:"type"` // "hover", "preview", "placement", "cancel"
	TargetID  string                  `json:"targetId,omitempty"`
	Preview   *gesture.Preview        `json:"preview,omitempty"`
	Placement *gesture.PlacementEvent `json:"placement,omitempty"`
	Reason    gesture.CancelReason    `json:"reason,omitempty"`
}

// Engine is not safe for concurrent use. In the browser every call comes
// from the JS event loop.
type Engine struct {
	controller *gesture.Controller
	pointer    *gesture.PointerAdapter
	touch      *gesture.TouchAdapter
	scene      *gesture.Region
	gizmo      *gizmo.Gizmo

	product geometry.Size
	busy    bool

	// Mirrors of the last hover and preview, for rendering.
	hovered string
	preview gesture.Preview

	pending []Notification
}

// NewEngine creates an engine with an empty scene. scroll may be nil.
func NewEngine(scroll gesture.ScrollLock) *Engine {
	c := gesture.NewController(scroll)
	e := &Engine{
		controller: c,
		pointer:    gesture.NewPointerAdapter(c),
		touch:      gesture.NewTouchAdapter(c),
		scene:      gesture.NewRegion(SceneTargetID),
		gizmo:      gizmo.New(),
	}
	c.AddTarget(e.scene)
	c.Listen(gesture.Listener{
		OnHover: func(id string) {
			e.hovered = id
			e.pending = append(e.pending, Notification{Type: "hover", TargetID: id})
		},
		OnPreview: func(p gesture.Preview) {
			e.preview = p
			e.pending = append(e.pending, Notification{Type: "preview", TargetID: p.TargetID, Preview: &p})
		},
		OnPlacement: func(ev gesture.PlacementEvent) {
			e.pending = append(e.pending, Notification{Type: "placement", TargetID: ev.TargetID, Placement: &ev})
		},
		OnCancel: func(reason gesture.CancelReason) {
			e.pending = append(e.pending, Notification{Type: "cancel", Reason: reason})
		},
	})
	e.sync()
	return e
}

// --- Commands (frontend → engine) ---

// SetLayout records the scene element's bounding rect in client pixels.
func (e *Engine) SetLayout(bounds geometry.Rect) {
	e.scene.SetLayout(bounds)
}

// SetSceneSize records the natural size of the displayed scene. A zero size
// means no scene is loaded.
func (e *Engine) SetSceneSize(natural geometry.Size) {
	e.scene.SetNaturalSize(natural)
	e.sync()
}

// SetProductSize records the natural size of the product image. A zero size
// means no product is loaded and drops are refused.
func (e *Engine) SetProductSize(natural geometry.Size) {
	e.product = natural
	if natural.IsEmpty() {
		e.gizmo.Cancel()
	}
	e.sync()
}

// SetBusy stops the scene accepting drops while a generation is running.
func (e *Engine) SetBusy(busy bool) {
	e.busy = busy
	e.sync()
}

// sync enables the drop target only when a placement could succeed, and
// cancels a drag hovering the scene when that stops being true.
func (e *Engine) sync() {
	e.scene.SetEnabled(!e.product.IsEmpty() && !e.busy)
	if s, ok := e.controller.Session(); ok && s.Hovered != nil && !e.scene.Enabled() {
		e.controller.Cancel(gesture.ReasonTargetDisabled)
	}
}

func (e *Engine) DragStart(p geometry.Point) gesture.Outcome { return e.pointer.DragStart(p) }
func (e *Engine) DragOver(p geometry.Point) gesture.Outcome { return e.pointer.DragOver(p) }
func (e *Engine) Drop(p geometry.Point) gesture.Outcome { return e.pointer.Drop(p) }
func (e *Engine) DragEnd() gesture.Outcome { return e.pointer.DragEnd() }

func (e *Engine) TouchStart(id int, p geometry.Point) gesture.Outcome {
	return e.touch.TouchStart(id, p)
}

func (e *Engine) TouchMove(id int, p geometry.Point) gesture.Outcome {
	return e.touch.TouchMove(id, p)
}

func (e *Engine) TouchEnd(id int, p geometry.Point) gesture.Outcome {
	return e.touch.TouchEnd(id, p)
}

func (e *Engine) TouchCancel(id int) gesture.Outcome {
	return e.touch.TouchCancel(id)
}

// CancelGesture abandons any active drag, e.g. when the page loses focus.
func (e *Engine) CancelGesture() bool {
	return e.controller.Cancel(gesture.ReasonInterrupted)
}

// StageProduct stages the overlay at the centre of the scene, a quarter of
// the scene width wide at most.
func (e *Engine) StageProduct() error {
	if e.product.IsEmpty() {
		return errNoProduct
	}
	bounds := e.scene.Bounds()
	width := e.product.Width
	if !bounds.IsEmpty() && width > bounds.Width/4 {
		width = bounds.Width / 4
	}
	e.gizmo.Stage(gizmo.Transform{X: bounds.Width / 2, Y: bounds.Height / 2, Scale: 1, Width: width})
	return nil
}

// BeginGizmo starts a scale drag when p is on the handle and a move drag
// when it is on the overlay. It reports which one started.
func (e *Engine) BeginGizmo(p geometry.Point) (string, error) {
	switch e.hitTest(p) {
	case HitHandle:
		return HitHandle, e.gizmo.BeginScale(p)
	case HitGizmo:
		return HitGizmo, e.gizmo.BeginMove(p)
	default:
		return HitNone, nil
	}
}

func (e *Engine) DragGizmo(p geometry.Point) gizmo.Transform { return e.gizmo.Drag(p) }

func (e *Engine) EndGizmo() { e.gizmo.End() }

func (e *Engine) PatchGizmo(p gizmo.Patch) (gizmo.Transform, error) { return e.gizmo.Update(p) }

func (e *Engine) CancelGizmo() { e.gizmo.Cancel() }

// ConfirmGizmo maps the overlay centre onto the scene image and unstages it.
// An overlay centred on the letterbox padding returns
// geometry.ErrOutOfBounds and stays staged.
func (e *Engine) ConfirmGizmo() (geometry.NormalizedPosition, error) {
	t, ok := e.gizmo.Transform()
	if !ok {
		return geometry.NormalizedPosition{}, gizmo.ErrNotStaged
	}
	pos, err := gizmo.Locate(t, e.scene.Bounds(), e.scene.NaturalSize())
	if err != nil {
		return geometry.NormalizedPosition{}, err
	}
	e.gizmo.Confirm()
	return pos, nil
}

// --- Queries (frontend ← engine) ---

// Drain returns the queued notifications as JSON and clears the queue.
func (e *Engine) Drain() string {
	out := e.pending
	e.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return marshal(out)
}

// Render returns the overlay draw commands as JSON.
func (e *Engine) Render() string {
	commands := e.compileOverlay()
	if commands == nil {
		commands = []DrawCommand{}
	}
	return marshal(commands)
}

// HitTest returns what lies under client point p: "gizmo-handle", "gizmo",
// "scene" or "".
func (e *Engine) HitTest(p geometry.Point) string {
	return e.hitTest(p)
}

// State is the engine's render-relevant state.
type State struct {
	Dragging   bool             `json:"dragging"`
	Modality   gesture.Modality `json:"modality,omitempty"`
	Hovered    string           `json:"hovered,omitempty"`
	DropTarget bool             `json:"dropTarget"`
	GizmoState string           `json:"gizmoState"`
	Staged     *gizmo.Transform `json:"staged,omitempty"`
	Layout     geometry.Rect    `json:"layout"`
}

func (e *Engine) State() State {
	st := State{
		Hovered:    e.hovered,
		DropTarget: e.scene.Enabled(),
		GizmoState: e.gizmo.State().String(),
		Layout:     e.scene.Bounds(),
	}
	if s, ok := e.controller.Session(); ok {
		st.Dragging = true
		st.Modality = s.Modality
	}
	if t, ok := e.gizmo.Transform(); ok {
		st.Staged = &t
	}
	return st
}

// GetState returns State as JSON.
func (e *Engine) GetState() string {
	return marshal(e.State())
}

// MapPosition maps a pointer over a letterboxed container to image percent.
// It is a pure helper for frontends that do their own gesture handling.
func MapPosition(pointer geometry.Point, container geometry.Rect, natural geometry.Size) string {
	pos, err := geometry.MapToImage(pointer, container, natural)
	if err != nil {
		return marshal(map[string]any{"error": err.Error(), "outOfBounds": errors.Is(err, geometry.ErrOutOfBounds)})
	}
	return marshal(pos)
}

func (e *Engine) productAspect() float64 {
	if e.product.IsEmpty() {
		return 1
	}
	return e.product.Height / e.product.Width
}

var errNoProduct = errors.New("no product image loaded")
