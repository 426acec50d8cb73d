// Package overlay draws hole decisions over a raster for visual review.
//
// Filled holes are outlined and tinted in the fill color, protected holes are
// outlined in the protect color, and each box carries the index of its
// contour so it can be matched with the decision list.
package overlay

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/fill"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// Options controls the overlay colors.
type Options struct {
	// FillColor and ProtectColor are hex colors such as "#e53935".
	FillColor    string `json:"fill_color"`
	ProtectColor string `json:"protect_color"`

	// Tint is how strongly painted pixels take the fill color, from 0 (black
	// ink) to 1 (pure fill color). The blend is done in CIE L*a*b*.
	Tint float64 `json:"tint"`

	// Labels draws the contour index next to every box.
	Labels bool `json:"labels"`
}

// DefaultOptions returns red for filled holes and blue for protected ones.
func DefaultOptions() Options {
	return Options{
		FillColor:    "#e53935",
		ProtectColor: "#1e88e5",
		Tint:         0.6,
		Labels:       true,
	}
}

// Validate reports every color that does not parse and a tint outside [0, 1].
func (o Options) Validate() error {
	_, _, err := o.colors()
	return err
}

func (o Options) colors() (fillC, protectC colorful.Color, err error) {
	var errs []error
	fillC, ferr := colorful.Hex(o.FillColor)
	if ferr != nil {
		errs = append(errs, fmt.Errorf("invalid fill color: %w", ferr))
	}
	protectC, perr := colorful.Hex(o.ProtectColor)
	if perr != nil {
		errs = append(errs, fmt.Errorf("invalid protect color: %w", perr))
	}
	if o.Tint < 0 || o.Tint > 1 {
		errs = append(errs, fmt.Errorf("tint must be in [0, 1], got %g", o.Tint))
	}
	return fillC, protectC, errors.Join(errs...)
}

// Render draws the decisions of out over src. src must be the raster out was
// computed from.
func Render(src *raster.Raster, out *fill.Outcome, o Options) (*image.RGBA, error) {
	fillC, protectC, err := o.colors()
	if err != nil {
		return nil, err
	}

	base := src.ToImage()
	img := image.NewRGBA(base.Bounds())
	draw.Draw(img, img.Bounds(), base, image.Point{}, draw.Src)

	black := colorful.Color{}
	painted := toRGBA(black.BlendLab(fillC, o.Tint))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			if !src.IsInk(x, y) && out.Result.IsInk(x, y) {
				img.SetRGBA(x, y, painted)
			}
		}
	}

	labelFg := color.RGBA{255, 255, 255, 255}
	labelBg := color.RGBA{0, 0, 0, 180}
	for _, d := range out.Decisions {
		c := toRGBA(protectC)
		if d.Verdict == holes.Fill {
			c = toRGBA(fillC)
		}
		r := image.Rect(d.Box.X-1, d.Box.Y-1, d.Box.X+d.Box.W+1, d.Box.Y+d.Box.H+1)
		drawBox(img, r, c)
		if o.Labels {
			drawLabel(img, r.Max.X+1, r.Min.Y, strconv.Itoa(d.Index), labelFg, labelBg)
		}
	}
	return img, nil
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawBox draws the one pixel border of r, clipped to img.
func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	b := img.Bounds()
	set := func(x, y int) {
		if image.Pt(x, y).In(b) {
			img.SetRGBA(x, y, c)
		}
	}
	for x := r.Min.X; x < r.Max.X; x++ {
		set(x, r.Min.Y)
		set(x, r.Max.Y-1)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		set(r.Min.X, y)
		set(r.Max.X-1, y)
	}
}

// digits is a 3x5 pixel font.
var digits = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
}

// drawLabel draws text on a filled background with its top-left corner at
// (x, y). Characters outside the font leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	b := img.Bounds()
	const charWidth = 4
	w, h := len(text)*charWidth, 7

	for dy := -1; dy < h; dy++ {
		for dx := -1; dx < w; dx++ {
			if p := image.Pt(x+dx, y+dy); p.In(b) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range digits[ch] {
			for col, px := range line {
				if p := image.Pt(cx+col, y+row); px == '1' && p.In(b) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}

// Result is an encoded overlay.
type Result struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Filled      int    `json:"filled"`
	Protected   int    `json:"protected"`
}

// Encode renders the overlay and returns it as a base64 PNG.
func Encode(src *raster.Raster, out *fill.Outcome, o Options) (*Result, error) {
	img, err := Render(src, out, o)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return &Result{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Filled:      out.Filled,
		Protected:   out.Skipped,
	}, nil
}
