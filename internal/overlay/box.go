package overlay

import (
	"math"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
)

// MinBoxSize is the smallest width or height a resize may produce, in scene units.
const MinBoxSize = 5.0

// SnapTolerance is how close (in degrees) a rotation must be to a snap angle to jump to it.
const SnapTolerance = 5.0

// RotationSnaps are the angles a rotate gesture sticks to. They do not depend on the device.
var RotationSnaps = []float64{0, 45, 90, 135, 180, 225, 270, 315}

// Box is the rotated frame an image occupies: (X, Y) is the top-left corner
// before rotation, Width/Height are signed scaled sizes, Rotation is in degrees.
type Box struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"`
}

// BoxOf returns the frame of an image with the given natural size.
func BoxOf(t document.Transform, size geom.Size) Box {
	return Box{
		X:        t.X,
		Y:        t.Y,
		Width:    size.Width * t.ScaleX,
		Height:   size.Height * t.ScaleY,
		Rotation: t.Rotation,
	}
}

// Transform converts the frame back into an image transform for the natural size.
// Scale stays the permanent representation; pixel dimensions are never rewritten.
func (b Box) Transform(size geom.Size) document.Transform {
	t := document.Transform{X: b.X, Y: b.Y, Rotation: b.Rotation, ScaleX: 1, ScaleY: 1}
	if size.Width != 0 {
		t.ScaleX = b.Width / size.Width
	}
	if size.Height != 0 {
		t.ScaleY = b.Height / size.Height
	}
	return t
}

// Origin returns the top-left corner in scene coordinates.
func (b Box) Origin() geom.Point {
	return geom.Pt(b.X, b.Y)
}

// ToWorld maps a point in the box's unrotated frame into scene coordinates.
func (b Box) ToWorld(local geom.Point) geom.Point {
	return b.Origin().Add(local.Rotate(b.Rotation))
}

// ToLocal maps a scene point into the box's unrotated frame.
func (b Box) ToLocal(p geom.Point) geom.Point {
	return p.Sub(b.Origin()).Rotate(-b.Rotation)
}

// Center returns the middle of the box in scene coordinates.
func (b Box) Center() geom.Point {
	return b.ToWorld(geom.Pt(b.Width/2, b.Height/2))
}

// Corners returns the four corners in scene coordinates, clockwise from the origin.
func (b Box) Corners() [4]geom.Point {
	return [4]geom.Point{
		b.ToWorld(geom.Pt(0, 0)),
		b.ToWorld(geom.Pt(b.Width, 0)),
		b.ToWorld(geom.Pt(b.Width, b.Height)),
		b.ToWorld(geom.Pt(0, b.Height)),
	}
}

// Contains reports whether p lies inside the rotated box.
func (b Box) Contains(p geom.Point) bool {
	l := b.ToLocal(p)
	x0, x1 := min(0, b.Width), max(0, b.Width)
	y0, y1 := min(0, b.Height), max(0, b.Height)
	return l.X >= x0 && l.X <= x1 && l.Y >= y0 && l.Y <= y1
}

// Bounds returns the axis-aligned box around the rotated frame.
func (b Box) Bounds() geom.Rect {
	c := b.Corners()
	return geom.Bounds(c[0], c[1], c[2], c[3])
}

// BoundBox keeps the previous box when the proposal collapses below MinBoxSize.
func BoundBox(old, proposed Box) Box {
	if math.Abs(proposed.Width) < MinBoxSize || math.Abs(proposed.Height) < MinBoxSize {
		return old
	}
	return proposed
}

// Resize moves the dragged anchor to local (in the box's unrotated frame) and
// keeps the opposite edges fixed. Corner anchors keep the aspect ratio when keepRatio is set.
func Resize(b Box, kind HandleKind, local geom.Point, keepRatio bool) Box {
	left, top, right, bottom := 0.0, 0.0, b.Width, b.Height

	if keepRatio && kind.IsCorner() {
		fixed := geom.Pt(b.Width, b.Height).Sub(kind.anchorUnit(b.Width, b.Height))
		diag := kind.anchorUnit(b.Width, b.Height).Sub(fixed)
		lenSq := diag.X*diag.X + diag.Y*diag.Y
		if lenSq > 0 {
			v := local.Sub(fixed)
			k := (v.X*diag.X + v.Y*diag.Y) / lenSq
			local = fixed.Add(diag.Mul(k))
		}
	}

	switch kind {
	case TopLeft:
		left, top = local.X, local.Y
	case TopCenter:
		top = local.Y
	case TopRight:
		right, top = local.X, local.Y
	case MiddleLeft:
		left = local.X
	case MiddleRight:
		right = local.X
	case BottomLeft:
		left, bottom = local.X, local.Y
	case BottomCenter:
		bottom = local.Y
	case BottomRight:
		right, bottom = local.X, local.Y
	default:
		return b
	}

	origin := b.ToWorld(geom.Pt(left, top))
	return Box{
		X:        origin.X,
		Y:        origin.Y,
		Width:    right - left,
		Height:   bottom - top,
		Rotation: b.Rotation,
	}
}

// Rotate turns the box around its center so the rotater points at pointer.
// The stored rotation stays continuous with the previous value.
func Rotate(b Box, pointer geom.Point) Box {
	center := b.Center()
	d := pointer.Sub(center)
	if d.X == 0 && d.Y == 0 {
		return b
	}
	target := geom.Degrees(math.Atan2(d.Y, d.X)) + 90
	if b.Height < 0 {
		target += 180
	}

	delta := math.Mod(target-b.Rotation, 360)
	if delta > 180 {
		delta -= 360
	} else if delta <= -180 {
		delta += 360
	}
	rotation := SnapRotation(b.Rotation+delta, SnapTolerance)

	half := geom.Pt(b.Width/2, b.Height/2).Rotate(rotation)
	origin := center.Sub(half)
	return Box{X: origin.X, Y: origin.Y, Width: b.Width, Height: b.Height, Rotation: rotation}
}

// SnapRotation moves deg onto the nearest snap angle when it is within tolerance.
func SnapRotation(deg, tolerance float64) float64 {
	n := math.Mod(deg, 360)
	if n < 0 {
		n += 360
	}
	for _, snap := range RotationSnaps {
		diff := snap - n
		if diff > 180 {
			diff -= 360
		} else if diff < -180 {
			diff += 360
		}
		if math.Abs(diff) < tolerance {
			return deg + diff
		}
	}
	return deg
}
