// Package raster paints a scene into pixels on the server, for previews of
// what the overlay looks like without the camera feed behind it.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
)

// Source provides decoded pixels for a source ref.
type Source interface {
	Open(ref string) (image.Image, error)
}

// Compositor renders image collections onto a fixed-size transparent canvas.
type Compositor struct {
	src    Source
	width  int
	height int
	interp draw.Transformer
	logger *slog.Logger
}

// NewCompositor creates a compositor producing width x height previews.
func NewCompositor(src Source, width, height int, logger *slog.Logger) *Compositor {
	return &Compositor{
		src:    src,
		width:  width,
		height: height,
		interp: draw.BiLinear,
		logger: logger,
	}
}

// Composite paints images back to front. Images whose pixels cannot be
// opened are skipped, the same as a pending image on the client.
func (c *Compositor) Composite(images []document.ImageTransform) *image.NRGBA {
	bounds := image.Rect(0, 0, c.width, c.height)
	canvas := image.NewNRGBA(bounds)

	for _, img := range images {
		src, err := c.src.Open(img.SourceRef)
		if err != nil {
			c.logger.Debug("preview skip", "id", img.ID, "src", img.SourceRef, "error", err)
			continue
		}
		c.paint(canvas, src, img)
	}
	return canvas
}

func (c *Compositor) paint(canvas *image.NRGBA, src image.Image, img document.ImageTransform) {
	if img.Opacity <= 0 {
		return
	}
	t := img.Transform
	sb := src.Bounds()

	// pixel (0,0) of the source sits at the image's local origin
	m := geom.FromTransform(t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation).
		Multiply(geom.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))

	layer := image.NewNRGBA(canvas.Bounds())
	c.interp.Transform(layer, toAff3(m), src, sb, draw.Over, nil)

	alpha := uint8(min(img.Opacity, 1) * 0xff)
	mask := image.NewUniform(color.Alpha{A: alpha})
	draw.DrawMask(canvas, canvas.Bounds(), layer, image.Point{}, mask, image.Point{}, draw.Over)
}

// Encode writes img as lossless WebP.
func Encode(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// WritePreview composites images and writes the result as WebP.
func (c *Compositor) WritePreview(w io.Writer, images []document.ImageTransform) error {
	return Encode(w, c.Composite(images))
}

// toAff3 converts a canvas-style matrix into the source-to-destination form
// x/image/draw expects.
func toAff3(m geom.Matrix2D) f64.Aff3 {
	return f64.Aff3{
		m[0], m[2], m[4],
		m[1], m[3], m[5],
	}
}
