package overlay

import (
	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
)

// Decoration colours.
const (
	SelectionColor = "#c4b5fd"
	SelectionGlow  = "rgba(196,181,253,0.45)"
	AnchorFill     = "#f5f3ff"
)

// VisualKind is the type of a painted element.
type VisualKind string

const (
	VisualImage   VisualKind = "image"
	VisualOutline VisualKind = "outline"
	VisualAnchor  VisualKind = "anchor"
	VisualRotater VisualKind = "rotater"
)

// Visual is one painted element of a transformable object. Transform maps
// the element's local frame (origin top-left, size Width x Height) into the scene.
type Visual struct {
	Kind         VisualKind
	ObjectID     string
	SourceRef    string
	Handle       HandleKind
	Transform    geom.Matrix2D
	Width        float64
	Height       float64
	Opacity      float64
	Fill         string
	Stroke       string
	StrokeWidth  float64
	CornerRadius float64
	Shadow       string
	ShadowBlur   float64
}

// Render paints one image at its transform. An image whose natural size is not
// known yet paints nothing and has no outline; the handles need a size as well.
func Render(obj document.ImageTransform, size geom.Size, selected bool, handles *HandleSet) []Visual {
	if size.IsZero() {
		return nil
	}

	t := obj.Transform
	world := geom.FromTransform(t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation)

	visuals := []Visual{{
		Kind:      VisualImage,
		ObjectID:  obj.ID,
		SourceRef: obj.SourceRef,
		Transform: world,
		Width:     size.Width,
		Height:    size.Height,
		Opacity:   obj.Opacity,
	}}
	if !selected {
		return visuals
	}

	style := FineStyle
	if handles != nil {
		style = handles.Style
	}
	visuals = append(visuals, Visual{
		Kind:         VisualOutline,
		ObjectID:     obj.ID,
		Transform:    world,
		Width:        size.Width,
		Height:       size.Height,
		Opacity:      1,
		Stroke:       SelectionColor,
		StrokeWidth:  style.StrokeWidth,
		CornerRadius: style.CornerRadius,
		Shadow:       SelectionGlow,
		ShadowBlur:   style.ShadowBlur,
	})

	if handles == nil || !handles.BoundTo(obj.ID) {
		return visuals
	}

	box := BoxOf(t, size)
	half := style.AnchorSize / 2
	kinds := append([]HandleKind{}, Anchors...)
	kinds = append(kinds, Rotater)
	for _, kind := range kinds {
		c := handles.Position(box, kind)
		v := Visual{
			Kind:         VisualAnchor,
			ObjectID:     obj.ID,
			Handle:       kind,
			Transform:    geom.Translate(c.X, c.Y).Multiply(geom.RotateDegrees(t.Rotation)).Multiply(geom.Translate(-half, -half)),
			Width:        style.AnchorSize,
			Height:       style.AnchorSize,
			Opacity:      1,
			Fill:         AnchorFill,
			Stroke:       SelectionColor,
			StrokeWidth:  style.StrokeWidth,
			CornerRadius: half,
		}
		if kind == Rotater {
			v.Kind = VisualRotater
		}
		visuals = append(visuals, v)
	}
	return visuals
}
