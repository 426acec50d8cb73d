package overlay

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/fill"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// ring inks a border of the given thickness around [x0,x1)x[y0,y1).
func ring(r *raster.Raster, x0, y0, x1, y1, thickness int) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if x < x0+thickness || x >= x1-thickness || y < y0+thickness || y >= y1-thickness {
				r.Set(x, y, raster.Ink)
			}
		}
	}
}

// createFixture returns a raster with a small fillable gap and a large
// protected loop.
func createFixture(t *testing.T) (*raster.Raster, *fill.Outcome) {
	t.Helper()
	r := raster.New(40, 30)
	ring(r, 2, 2, 6, 6, 1)
	ring(r, 12, 2, 36, 28, 2)

	out, err := fill.Process(r, holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Filled != 1 || out.Skipped != 1 {
		t.Fatalf("fixture: filled=%d skipped=%d", out.Filled, out.Skipped)
	}
	return r, out
}

func hexRGBA(t *testing.T, hex string) color.RGBA {
	t.Helper()
	c, err := colorful.Hex(hex)
	if err != nil {
		t.Fatalf("bad hex %s: %v", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 255}
}

func TestRender_Colors(t *testing.T) {
	src, out := createFixture(t)
	o := DefaultOptions()
	o.Labels = false

	img, err := Render(src, out, o)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	fillC := hexRGBA(t, o.FillColor)
	protectC := hexRGBA(t, o.ProtectColor)

	if got := img.RGBAAt(2, 2); got != fillC {
		t.Errorf("fill box corner: got %v, want %v", got, fillC)
	}
	if got := img.RGBAAt(13, 3); got != protectC {
		t.Errorf("protect box corner: got %v, want %v", got, protectC)
	}

	painted := img.RGBAAt(3, 3)
	if painted == fillC || painted == (color.RGBA{0, 0, 0, 255}) || painted.R <= painted.B {
		t.Errorf("painted pixel should be a dark red blend, got %v", painted)
	}
	if got := img.RGBAAt(20, 15); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("protected interior should stay white, got %v", got)
	}
	if got := img.RGBAAt(0, 29); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("background: got %v", got)
	}
}

func TestRender_Labels(t *testing.T) {
	src, out := createFixture(t)

	img, err := Render(src, out, DefaultOptions())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	// The fill hole box ends at x=5; its label sits right of it.
	found := false
	for x := 7; x < 12; x++ {
		for y := 2; y < 9; y++ {
			if img.RGBAAt(x, y) == (color.RGBA{255, 255, 255, 255}) {
				continue
			}
			found = true
		}
	}
	if !found {
		t.Error("no label drawn next to the fill box")
	}
}

func TestRender_InvalidOptions(t *testing.T) {
	src, out := createFixture(t)

	tests := []struct {
		name string
		edit func(*Options)
	}{
		{"fill color", func(o *Options) { o.FillColor = "red" }},
		{"protect color", func(o *Options) { o.ProtectColor = "#12" }},
		{"tint", func(o *Options) { o.Tint = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			tt.edit(&o)
			if err := o.Validate(); err == nil {
				t.Error("Validate: expected error")
			}
			if _, err := Render(src, out, o); err == nil {
				t.Error("Render: expected error")
			}
		})
	}
}

func TestOptions_ValidateReportsEveryProblem(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	o := Options{FillColor: "red", ProtectColor: "#12", Tint: -0.1}
	err := o.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"fill color", "protect color", "tint"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestEncode(t *testing.T) {
	src, out := createFixture(t)

	res, err := Encode(src, out, DefaultOptions())
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if res.Width != 40 || res.Height != 30 || res.MimeType != "image/png" {
		t.Errorf("unexpected result header: %+v", res)
	}
	if res.Filled != 1 || res.Protected != 1 {
		t.Errorf("counts: got %d/%d", res.Filled, res.Protected)
	}

	data, err := base64.StdEncoding.DecodeString(res.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 40, 30) {
		t.Errorf("bounds: got %v", img.Bounds())
	}
}

func TestDrawLabel_Clipped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 5))
	// Must not panic when the label runs past the image.
	drawLabel(img, 3, 3, "1234", color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 255})
	if got := img.RGBAAt(2, 2); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("background pixel: got %v", got)
	}
}
