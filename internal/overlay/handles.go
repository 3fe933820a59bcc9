package overlay

import (
	"math"

	"github.com/tracelay/tracelay/backend-go/internal/geom"
)

// HandleKind identifies one control point of the handle set.
type HandleKind int

const (
	HandleNone HandleKind = iota
	TopLeft
	TopCenter
	TopRight
	MiddleLeft
	MiddleRight
	BottomLeft
	BottomCenter
	BottomRight
	Rotater
)

var handleNames = map[HandleKind]string{
	HandleNone:   "",
	TopLeft:      "top-left",
	TopCenter:    "top-center",
	TopRight:     "top-right",
	MiddleLeft:   "middle-left",
	MiddleRight:  "middle-right",
	BottomLeft:   "bottom-left",
	BottomCenter: "bottom-center",
	BottomRight:  "bottom-right",
	Rotater:      "rotater",
}

// Anchors lists the resize handles in paint order.
var Anchors = []HandleKind{
	TopLeft, TopCenter, TopRight,
	MiddleLeft, MiddleRight,
	BottomLeft, BottomCenter, BottomRight,
}

func (h HandleKind) String() string {
	return handleNames[h]
}

// IsAnchor reports whether h is a resize anchor.
func (h HandleKind) IsAnchor() bool {
	return h >= TopLeft && h <= BottomRight
}

// IsCorner reports whether h is one of the four corner anchors.
func (h HandleKind) IsCorner() bool {
	return h == TopLeft || h == TopRight || h == BottomLeft || h == BottomRight
}

// anchorUnit is the anchor's position on an unpadded box of size (w, h).
func (h HandleKind) anchorUnit(w, hgt float64) geom.Point {
	switch h {
	case TopLeft:
		return geom.Pt(0, 0)
	case TopCenter:
		return geom.Pt(w/2, 0)
	case TopRight:
		return geom.Pt(w, 0)
	case MiddleLeft:
		return geom.Pt(0, hgt/2)
	case MiddleRight:
		return geom.Pt(w, hgt/2)
	case BottomLeft:
		return geom.Pt(0, hgt)
	case BottomCenter:
		return geom.Pt(w/2, hgt)
	case BottomRight:
		return geom.Pt(w, hgt)
	}
	return geom.Pt(w/2, 0)
}

// AnchorPoint returns the unpadded position of anchor kind in the box frame.
func AnchorPoint(b Box, kind HandleKind) geom.Point {
	return kind.anchorUnit(b.Width, b.Height)
}

// HandleStyle sizes the handle set for a pointer type.
type HandleStyle struct {
	AnchorSize   float64
	RotateOffset float64
	Padding      float64
	StrokeWidth  float64
	CornerRadius float64
	ShadowBlur   float64
	KeepRatio    bool
}

var (
	// FineStyle suits mouse and pen input.
	FineStyle = HandleStyle{
		AnchorSize:   16,
		RotateOffset: 70,
		Padding:      10,
		StrokeWidth:  2,
		CornerRadius: 10,
		ShadowBlur:   10,
		KeepRatio:    true,
	}
	// CoarseStyle suits touch input.
	CoarseStyle = HandleStyle{
		AnchorSize:   30,
		RotateOffset: 96,
		Padding:      18,
		StrokeWidth:  3,
		CornerRadius: 14,
		ShadowBlur:   14,
		KeepRatio:    true,
	}
)

// StyleFor returns the preset for a coarse (touch) or fine pointer.
func StyleFor(coarse bool) HandleStyle {
	if coarse {
		return CoarseStyle
	}
	return FineStyle
}

// HandleSet is the single set of resize/rotate handles. It is bound to at
// most one object, the selected one.
type HandleSet struct {
	target string
	Style  HandleStyle
}

// NewHandleSet returns a detached handle set.
func NewHandleSet(style HandleStyle) *HandleSet {
	return &HandleSet{Style: style}
}

// Bind attaches the handles to id, detaching them from any other object.
func (h *HandleSet) Bind(id string) {
	h.target = id
}

// Detach removes the handles from their object.
func (h *HandleSet) Detach() {
	h.target = ""
}

// Target returns the bound object id.
func (h *HandleSet) Target() (string, bool) {
	return h.target, h.target != ""
}

// BoundTo reports whether the handles are attached to id.
func (h *HandleSet) BoundTo(id string) bool {
	return id != "" && h.target == id
}

// LocalPosition returns where handle kind sits in the box's unrotated frame,
// pushed outward by the style padding.
func (h *HandleSet) LocalPosition(b Box, kind HandleKind) geom.Point {
	sx, sy := sign(b.Width), sign(b.Height)
	pad := h.Style.Padding

	if kind == Rotater {
		return geom.Pt(b.Width/2, -sy*(pad+h.Style.RotateOffset))
	}

	p := kind.anchorUnit(b.Width, b.Height)
	switch kind {
	case TopLeft, MiddleLeft, BottomLeft:
		p.X -= sx * pad
	case TopRight, MiddleRight, BottomRight:
		p.X += sx * pad
	}
	switch kind {
	case TopLeft, TopCenter, TopRight:
		p.Y -= sy * pad
	case BottomLeft, BottomCenter, BottomRight:
		p.Y += sy * pad
	}
	return p
}

// Position returns where handle kind sits in scene coordinates.
func (h *HandleSet) Position(b Box, kind HandleKind) geom.Point {
	return b.ToWorld(h.LocalPosition(b, kind))
}

// HitTest returns the handle under p, or HandleNone. The rotater wins over anchors.
func (h *HandleSet) HitTest(b Box, p geom.Point) HandleKind {
	r := h.Style.AnchorSize / 2
	if geom.Distance(h.Position(b, Rotater), p) <= r {
		return Rotater
	}
	best, bestDist := HandleNone, math.Inf(1)
	for _, kind := range Anchors {
		d := geom.Distance(h.Position(b, kind), p)
		if d <= r && d < bestDist {
			best, bestDist = kind, d
		}
	}
	return best
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
