//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/Nikhil-Joson/HomeCanvas/internal/engine"
	"github.com/Nikhil-Joson/HomeCanvas/internal/geometry"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gesture"
	"github.com/Nikhil-Joson/HomeCanvas/internal/gizmo"
)

var eng *engine.Engine

// bodyScrollLock suppresses touch scrolling on the page body while a touch
// drag is active.
type bodyScrollLock struct {
	previous string
}

func (l *bodyScrollLock) Lock() {
	style := js.Global().Get("document").Get("body").Get("style")
	l.previous = style.Get("touchAction").String()
	style.Set("touchAction", "none")
}

func (l *bodyScrollLock) Unlock() {
	js.Global().Get("document").Get("body").Get("style").Set("touchAction", l.previous)
}

func main() {
	eng = engine.NewEngine(&bodyScrollLock{})

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("setLayout", js.FuncOf(setLayout))
	api.Set("setSceneSize", js.FuncOf(setSceneSize))
	api.Set("setProductSize", js.FuncOf(setProductSize))
	api.Set("setBusy", js.FuncOf(setBusy))
	api.Set("dragStart", js.FuncOf(pointerHandler(eng.DragStart)))
	api.Set("dragOver", js.FuncOf(pointerHandler(eng.DragOver)))
	api.Set("drop", js.FuncOf(pointerHandler(eng.Drop)))
	api.Set("dragEnd", js.FuncOf(dragEnd))
	api.Set("touchStart", js.FuncOf(touchHandler(eng.TouchStart)))
	api.Set("touchMove", js.FuncOf(touchHandler(eng.TouchMove)))
	api.Set("touchEnd", js.FuncOf(touchHandler(eng.TouchEnd)))
	api.Set("touchCancel", js.FuncOf(touchCancel))
	api.Set("cancelGesture", js.FuncOf(cancelGesture))
	api.Set("stageProduct", js.FuncOf(stageProduct))
	api.Set("beginGizmo", js.FuncOf(beginGizmo))
	api.Set("dragGizmo", js.FuncOf(dragGizmo))
	api.Set("endGizmo", js.FuncOf(endGizmo))
	api.Set("patchGizmo", js.FuncOf(patchGizmo))
	api.Set("confirmGizmo", js.FuncOf(confirmGizmo))
	api.Set("cancelGizmo", js.FuncOf(cancelGizmo))

	// --- Queries (frontend ← engine) ---
	api.Set("mapPosition", js.FuncOf(mapPosition))
	api.Set("drain", js.FuncOf(drain))
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("getState", js.FuncOf(getState))

	js.Global().Set("homeCanvasEngine", api)

	// Signal that WASM is ready
	js.Global().Set("homeCanvasWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func point(args []js.Value, i int) (geometry.Point, bool) {
	if len(args) < i+2 {
		return geometry.Point{}, false
	}
	return geometry.Point{X: args[i].Float(), Y: args[i+1].Float()}, true
}

func rect(args []js.Value, i int) (geometry.Rect, bool) {
	if len(args) < i+4 {
		return geometry.Rect{}, false
	}
	return geometry.Rect{
		X:      args[i].Float(),
		Y:      args[i+1].Float(),
		Width:  args[i+2].Float(),
		Height: args[i+3].Float(),
	}, true
}

func size(args []js.Value, i int) (geometry.Size, bool) {
	if len(args) < i+2 {
		return geometry.Size{}, false
	}
	return geometry.Size{Width: args[i].Float(), Height: args[i+1].Float()}, true
}

// --- Command Handlers ---

func setLayout(this js.Value, args []js.Value) interface{} {
	r, ok := rect(args, 0)
	if !ok {
		return nil
	}
	eng.SetLayout(r)
	return nil
}

func setSceneSize(this js.Value, args []js.Value) interface{} {
	s, _ := size(args, 0)
	eng.SetSceneSize(s)
	return nil
}

func setProductSize(this js.Value, args []js.Value) interface{} {
	s, _ := size(args, 0)
	eng.SetProductSize(s)
	return nil
}

func setBusy(this js.Value, args []js.Value) interface{} {
	eng.SetBusy(len(args) > 0 && args[0].Truthy())
	return nil
}

func pointerHandler(fn func(geometry.Point) gesture.Outcome) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		p, ok := point(args, 0)
		if !ok {
			return nil
		}
		return js.ValueOf(fn(p).String())
	}
}

func touchHandler(fn func(int, geometry.Point) gesture.Outcome) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 3 {
			return nil
		}
		p, _ := point(args, 1)
		return js.ValueOf(fn(args[0].Int(), p).String())
	}
}

func dragEnd(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.DragEnd().String())
}

func touchCancel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	return js.ValueOf(eng.TouchCancel(args[0].Int()).String())
}

func cancelGesture(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.CancelGesture())
}

func stageProduct(this js.Value, args []js.Value) interface{} {
	if err := eng.StageProduct(); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func beginGizmo(this js.Value, args []js.Value) interface{} {
	p, ok := point(args, 0)
	if !ok {
		return nil
	}
	mode, err := eng.BeginGizmo(p)
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(mode)
}

func dragGizmo(this js.Value, args []js.Value) interface{} {
	p, ok := point(args, 0)
	if !ok {
		return nil
	}
	data, _ := json.Marshal(eng.DragGizmo(p))
	return js.ValueOf(string(data))
}

func endGizmo(this js.Value, args []js.Value) interface{} {
	eng.EndGizmo()
	return nil
}

func patchGizmo(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing patch JSON"})
	}
	var p gizmo.Patch
	if err := json.Unmarshal([]byte(args[0].String()), &p); err != nil {
		return errorResult(err)
	}
	t, err := eng.PatchGizmo(p)
	if err != nil {
		return errorResult(err)
	}
	data, _ := json.Marshal(t)
	return js.ValueOf(string(data))
}

func confirmGizmo(this js.Value, args []js.Value) interface{} {
	pos, err := eng.ConfirmGizmo()
	if err != nil {
		return errorResult(err)
	}
	data, _ := json.Marshal(pos)
	return js.ValueOf(string(data))
}

func cancelGizmo(this js.Value, args []js.Value) interface{} {
	eng.CancelGizmo()
	return nil
}

// --- Query Handlers ---

// mapPosition(px, py, cx, cy, cw, ch, nw, nh)
func mapPosition(this js.Value, args []js.Value) interface{} {
	p, ok1 := point(args, 0)
	c, ok2 := rect(args, 2)
	n, ok3 := size(args, 6)
	if !ok1 || !ok2 || !ok3 {
		return js.ValueOf(`{"error":"mapPosition needs 8 numbers"}`)
	}
	return js.ValueOf(engine.MapPosition(p, c, n))
}

func drain(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Drain())
}

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	p, ok := point(args, 0)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(eng.HitTest(p))
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetState())
}
