package document

import (
	"errors"
	"math"
)

// MinScale is the smallest scale magnitude an image may have on either axis.
const MinScale = 0.05

// Defaults applied to a freshly added image.
const (
	DefaultX       = 50.0
	DefaultY       = 50.0
	DefaultOpacity = 0.5
)

// ErrDegenerateScale is returned when a transform would collapse an image.
var ErrDegenerateScale = errors.New("scale magnitude below minimum")

// Transform is the placement of an image in the scene.
// X/Y is the top-left anchor, Rotation is in degrees and unconstrained.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

// DefaultTransform returns the placement given to newly added images.
func DefaultTransform() Transform {
	return Transform{X: DefaultX, Y: DefaultY, ScaleX: 1, ScaleY: 1}
}

// Validate reports ErrDegenerateScale when either scale factor is too small.
func (t Transform) Validate() error {
	if math.Abs(t.ScaleX) < MinScale || math.Abs(t.ScaleY) < MinScale {
		return ErrDegenerateScale
	}
	return nil
}

// NormalizedRotation returns the rotation folded into [0, 360).
func (t Transform) NormalizedRotation() float64 {
	r := math.Mod(t.Rotation, 360)
	if r < 0 {
		r += 360
	}
	return r
}

// WithPosition returns a copy moved to (x, y).
func (t Transform) WithPosition(x, y float64) Transform {
	t.X, t.Y = x, y
	return t
}

// ImageTransform is one overlay image in the scene.
type ImageTransform struct {
	ID        string    `json:"id"`
	SourceRef string    `json:"src"`
	Transform Transform `json:"transform"`
	Opacity   float64   `json:"opacity"`
}

// NewImageTransform creates an image record with the default placement.
func NewImageTransform(id, sourceRef string) ImageTransform {
	return ImageTransform{
		ID:        id,
		SourceRef: sourceRef,
		Transform: DefaultTransform(),
		Opacity:   DefaultOpacity,
	}
}
