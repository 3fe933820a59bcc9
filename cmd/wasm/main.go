//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/engine"
	"github.com/tracelay/tracelay/backend-go/internal/gesture"
)

var eng *engine.Engine

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	tracelayEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	tracelayEngine.Set("add", js.FuncOf(add))
	tracelayEngine.Set("update", js.FuncOf(update))
	tracelayEngine.Set("remove", js.FuncOf(remove))
	tracelayEngine.Set("removeSelected", js.FuncOf(removeSelected))
	tracelayEngine.Set("select", js.FuncOf(selectImage))
	tracelayEngine.Set("deselect", js.FuncOf(deselect))
	tracelayEngine.Set("setOpacity", js.FuncOf(setOpacity))
	tracelayEngine.Set("setPointerType", js.FuncOf(setPointerType))
	tracelayEngine.Set("setImageSize", js.FuncOf(setImageSize))

	// --- Input ---
	tracelayEngine.Set("pointerDown", js.FuncOf(pointerDown))
	tracelayEngine.Set("pointerMove", js.FuncOf(pointerMove))
	tracelayEngine.Set("pointerUp", js.FuncOf(pointerUp))
	tracelayEngine.Set("pointerCancel", js.FuncOf(pointerCancel))

	// --- Queries (frontend ← engine) ---
	tracelayEngine.Set("render", js.FuncOf(render))
	tracelayEngine.Set("hitTest", js.FuncOf(hitTest))
	tracelayEngine.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	tracelayEngine.Set("getState", js.FuncOf(getState))
	tracelayEngine.Set("getSelection", js.FuncOf(getSelection))

	// Register on global scope
	js.Global().Set("tracelayEngine", tracelayEngine)

	// Signal that WASM is ready
	js.Global().Set("tracelayWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

func add(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return js.ValueOf(map[string]interface{}{"error": "missing source ref"})
	}
	return js.ValueOf(eng.Add(args[0].String()))
}

func update(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing id or transform JSON"})
	}
	var t document.Transform
	if err := json.Unmarshal([]byte(args[1].String()), &t); err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	eng.Update(args[0].String(), t)
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func remove(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.Remove(args[0].String())
	return nil
}

func removeSelected(this js.Value, args []js.Value) interface{} {
	eng.RemoveSelected()
	return nil
}

func selectImage(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		eng.Deselect()
		return nil
	}
	eng.Select(args[0].String())
	return nil
}

func deselect(this js.Value, args []js.Value) interface{} {
	eng.Deselect()
	return nil
}

func setOpacity(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetOpacity(args[0].Float())
	return nil
}

func setPointerType(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetPointerType(args[0].Truthy())
	return nil
}

func setImageSize(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return nil
	}
	eng.SetImageSize(args[0].String(), args[1].Float(), args[2].Float())
	return nil
}

// --- Input Handlers ---

func pointerArgs(args []js.Value) (int, float64, float64, bool) {
	if len(args) < 3 {
		return 0, 0, 0, false
	}
	return args[0].Int(), args[1].Float(), args[2].Float(), true
}

func result(res gesture.Result) interface{} {
	return js.ValueOf(map[string]interface{}{"preventDefault": res.PreventDefault})
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	id, x, y, ok := pointerArgs(args)
	if !ok {
		return result(gesture.Result{})
	}
	return result(eng.PointerDown(id, x, y))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	id, x, y, ok := pointerArgs(args)
	if !ok {
		return result(gesture.Result{})
	}
	return result(eng.PointerMove(id, x, y))
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	id, x, y, ok := pointerArgs(args)
	if !ok {
		return result(gesture.Result{})
	}
	return result(eng.PointerUp(id, x, y))
}

func pointerCancel(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.PointerCancel(args[0].Int())
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Render())
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	x := args[0].Float()
	y := args[1].Float()
	return js.ValueOf(eng.HitTest(x, y))
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelectionBounds())
}

func getState(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetState())
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.GetSelection())
}
