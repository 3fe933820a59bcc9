package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/tracelay/tracelay/backend-go/internal/document"
)

type mapSource map[string]image.Image

func (m mapSource) Open(ref string) (image.Image, error) {
	img, ok := m[ref]
	if !ok {
		return nil, errors.New("missing")
	}
	return img, nil
}

func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newTestCompositor() *Compositor {
	src := mapSource{"red": solid(10, 10, color.NRGBA{R: 255, A: 255})}
	return NewCompositor(src, 200, 200, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func image1(opacity float64, t document.Transform) document.ImageTransform {
	img := document.NewImageTransform("a", "red")
	img.Opacity = opacity
	img.Transform = t
	return img
}

func TestCompositePlacesImage(t *testing.T) {
	c := newTestCompositor()
	out := c.Composite([]document.ImageTransform{image1(1, document.DefaultTransform())})

	if got := out.NRGBAAt(55, 55); got.R != 255 || got.A != 255 {
		t.Errorf("inside pixel = %v", got)
	}
	if got := out.NRGBAAt(10, 10); got.A != 0 {
		t.Errorf("background pixel = %v", got)
	}
	if got := out.NRGBAAt(65, 65); got.A != 0 {
		t.Errorf("pixel past the image = %v", got)
	}
}

func TestCompositeScaleAndOpacity(t *testing.T) {
	c := newTestCompositor()
	tr := document.Transform{X: 20, Y: 20, ScaleX: 3, ScaleY: 3}
	out := c.Composite([]document.ImageTransform{image1(0.5, tr)})

	got := out.NRGBAAt(40, 40)
	if got.A < 120 || got.A > 135 {
		t.Errorf("half opacity alpha = %d", got.A)
	}
	if got.R < 250 {
		t.Errorf("colour = %v", got)
	}
	if got := out.NRGBAAt(55, 55); got.A != 0 {
		t.Errorf("pixel past the scaled image = %v", got)
	}
}

func TestCompositeSkipsMissing(t *testing.T) {
	c := newTestCompositor()
	missing := document.NewImageTransform("b", "nope")
	missing.Opacity = 1
	out := c.Composite([]document.ImageTransform{missing})
	for _, p := range out.Pix {
		if p != 0 {
			t.Fatal("missing image painted pixels")
		}
	}
}

func TestWritePreview(t *testing.T) {
	c := newTestCompositor()
	var buf bytes.Buffer
	if err := c.WritePreview(&buf, []document.ImageTransform{image1(1, document.DefaultTransform())}); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		t.Errorf("not a webp file: % x", data[:min(len(data), 12)])
	}
}
