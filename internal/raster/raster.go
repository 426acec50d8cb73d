package raster

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/segment"
)

// Pixel is the value of a single raster cell.
type Pixel uint8

const (
	// Background is the paper colour (white in the encoded image).
	Background Pixel = iota
	// Ink is the stroke colour (black in the encoded image).
	Ink
)

// ThresholdLevel is the luminance at or above which a pixel of a non-binary
// image becomes Background. Everything darker becomes Ink.
const ThresholdLevel = 128

// Raster is a Width×Height grid of Ink/Background pixels stored row-major.
type Raster struct {
	Width  int
	Height int
	Pix    []Pixel
}

// New returns an all-Background raster of the given size.
func New(width, height int) *Raster {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Raster{
		Width:  width,
		Height: height,
		Pix:    make([]Pixel, width*height),
	}
}

// Bounds returns the raster rectangle anchored at the origin.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.Width, r.Height)
}

// In reports whether (x, y) lies inside the raster.
func (r *Raster) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < r.Width && y < r.Height
}

// At returns the pixel at (x, y), or Background when outside the raster.
func (r *Raster) At(x, y int) Pixel {
	if !r.In(x, y) {
		return Background
	}
	return r.Pix[y*r.Width+x]
}

// IsInk reports whether (x, y) is an ink pixel.
func (r *Raster) IsInk(x, y int) bool {
	return r.At(x, y) == Ink
}

// Set writes p at (x, y). Writes outside the raster are ignored.
func (r *Raster) Set(x, y int, p Pixel) {
	if !r.In(x, y) {
		return
	}
	r.Pix[y*r.Width+x] = p
}

// Clone returns a deep copy of r.
func (r *Raster) Clone() *Raster {
	pix := make([]Pixel, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// InkCount returns the number of ink pixels.
func (r *Raster) InkCount() int {
	n := 0
	for _, p := range r.Pix {
		if p == Ink {
			n++
		}
	}
	return n
}

// ToImage encodes the raster as an 8-bit grayscale image with ink at 0 and
// background at 255.
func (r *Raster) ToImage() *image.Gray {
	img := image.NewGray(r.Bounds())
	for y := 0; y < r.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+r.Width]
		for x := range row {
			if r.Pix[y*r.Width+x] == Ink {
				row[x] = 0
			} else {
				row[x] = 255
			}
		}
	}
	return img
}

// FromImage converts img into a Raster.
//
// Images that already hold at most two gray levels are taken as they are: with
// two levels the darker one is ink, with a single level the pixel is ink when it
// is darker than ThresholdLevel. Anything else is binarized by a global threshold
// at ThresholdLevel, matching a plain "> 127 is white" cut.
//
// The returned flag reports whether thresholding was applied.
func FromImage(img image.Image) (*Raster, bool) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	r := New(width, height)

	levels := GrayLevels(img)
	if len(levels) > 2 {
		bin := segment.Threshold(img, ThresholdLevel)
		bb := bin.Bounds()
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if bin.GrayAt(bb.Min.X+x, bb.Min.Y+y).Y == 0 {
					r.Pix[y*width+x] = Ink
				}
			}
		}
		return r, true
	}

	var inkLevel uint8
	switch len(levels) {
	case 0:
		return r, false
	case 1:
		if levels[0] >= ThresholdLevel {
			return r, false
		}
		inkLevel = levels[0]
	default:
		inkLevel = levels[0]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if grayAt(img, bounds.Min.X+x, bounds.Min.Y+y) == inkLevel {
				r.Pix[y*width+x] = Ink
			}
		}
	}
	return r, false
}

// GrayLevels returns the distinct 8-bit gray levels present in img in ascending
// order. The scan stops counting once a third level is found, so callers can
// cheaply test for two-valued images with len(levels) <= 2.
func GrayLevels(img image.Image) []uint8 {
	bounds := img.Bounds()
	var seen [256]bool
	found := 0
	for y := bounds.Min.Y; y < bounds.Max.Y && found <= 2; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := grayAt(img, x, y)
			if !seen[v] {
				seen[v] = true
				found++
				if found > 2 {
					break
				}
			}
		}
	}

	levels := make([]uint8, 0, found)
	for v := 0; v < 256; v++ {
		if seen[v] {
			levels = append(levels, uint8(v))
		}
	}
	return levels
}

func grayAt(img image.Image, x, y int) uint8 {
	if g, ok := img.(*image.Gray); ok {
		return g.GrayAt(x, y).Y
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}
