package engine

import (
	"encoding/json"

	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context
// layered above the camera video.
type DrawCommand struct {
	Op           string    `json:"op"`                     // "image", "outline", "anchor", "rotater"
	ObjectID     string    `json:"objectId,omitempty"`     // For hit correlation
	Handle       string    `json:"handle,omitempty"`       // Anchor name for handle ops
	Transform    []float64 `json:"transform,omitempty"`    // [a, b, c, d, e, f] affine matrix
	Src          string    `json:"src,omitempty"`          // Source ref for image lookup
	Width        float64   `json:"width,omitempty"`        // Local width (natural width for images)
	Height       float64   `json:"height,omitempty"`       // Local height
	Opacity      float64   `json:"opacity"`                // Global alpha
	Fill         string    `json:"fill,omitempty"`         // Fill color
	Stroke       string    `json:"stroke,omitempty"`       // Stroke color
	StrokeWidth  float64   `json:"strokeWidth,omitempty"`  // Stroke width, screen pixels
	CornerRadius float64   `json:"cornerRadius,omitempty"` // Rounded corners
	Shadow       string    `json:"shadow,omitempty"`       // Shadow color
	ShadowBlur   float64   `json:"shadowBlur,omitempty"`   // Shadow blur radius
}

// CompileDrawCommands generates a draw command buffer from a scene graph.
// Commands are in painter's order (back to front); decorations of an image
// follow the image itself.
func CompileDrawCommands(sg *SceneGraph) []DrawCommand {
	if sg == nil {
		return nil
	}

	commands := make([]DrawCommand, 0, len(sg.Nodes))
	for _, node := range sg.Nodes {
		for _, v := range node.Visuals {
			commands = append(commands, compileVisual(v))
		}
	}
	return commands
}

func compileVisual(v overlay.Visual) DrawCommand {
	return DrawCommand{
		Op:           string(v.Kind),
		ObjectID:     v.ObjectID,
		Handle:       v.Handle.String(),
		Transform:    v.Transform.ToSlice(),
		Src:          v.SourceRef,
		Width:        v.Width,
		Height:       v.Height,
		Opacity:      v.Opacity,
		Fill:         v.Fill,
		Stroke:       v.Stroke,
		StrokeWidth:  v.StrokeWidth,
		CornerRadius: v.CornerRadius,
		Shadow:       v.Shadow,
		ShadowBlur:   v.ShadowBlur,
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	if commands == nil {
		return "[]", nil
	}
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTest returns the ID of the topmost painted image containing the point,
// or empty string. Pending images are not hit.
func HitTest(sg *SceneGraph, x, y float64) string {
	if sg == nil {
		return ""
	}

	p := geom.Pt(x, y)
	for i := len(sg.Nodes) - 1; i >= 0; i-- {
		node := sg.Nodes[i]
		if !node.Renderable() || !node.Bounds.Contains(x, y) {
			continue
		}
		if node.Box.Contains(p) {
			return node.ID
		}
	}
	return ""
}

// GetSelectionBounds returns the axis-aligned box of the given object, or an
// empty rect when it is unknown or pending.
func GetSelectionBounds(sg *SceneGraph, objectID string) geom.Rect {
	if sg == nil {
		return geom.Rect{}
	}
	node, ok := sg.NodesById[objectID]
	if !ok || !node.Renderable() {
		return geom.Rect{}
	}
	return node.Bounds
}

// RectToJSON serializes a Rect to JSON.
func RectToJSON(r geom.Rect) string {
	data, _ := json.Marshal(r)
	return string(data)
}
