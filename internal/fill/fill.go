// Package fill paints the holes classified Fill back into a raster and reports
// whether anything changed.
package fill

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/vector"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/contour"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// coverageCutoff is the mask alpha from which a pixel counts as covered.
// Contour vertices sit on pixel corners, so coverage is 0 or 255 up to float
// rounding.
const coverageCutoff = 0x80

// Render rasterizes the contour of every Fill decision and sets the covered
// pixels of result to Ink. Pixels are never cleared. It returns the number of
// holes painted.
func Render(result *raster.Raster, set *contour.Set, decisions []holes.Decision) int {
	var (
		mask *image.Alpha
		z    *vector.Rasterizer
	)

	filled := 0
	for _, d := range decisions {
		if d.Verdict != holes.Fill {
			continue
		}
		pts := set.Contours[d.Index].Points
		if len(pts) < 3 {
			continue
		}
		if mask == nil {
			mask = image.NewAlpha(result.Bounds())
			z = vector.NewRasterizer(result.Width, result.Height)
		} else {
			z.Reset(result.Width, result.Height)
		}

		z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, p := range pts[1:] {
			z.LineTo(float32(p.X), float32(p.Y))
		}
		z.ClosePath()
		z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
		filled++
	}

	if mask == nil {
		return 0
	}
	for y := 0; y < result.Height; y++ {
		row := mask.Pix[y*mask.Stride : y*mask.Stride+result.Width]
		for x, a := range row {
			if a >= coverageCutoff {
				result.Set(x, y, raster.Ink)
			}
		}
	}
	return filled
}

// Outcome is the result of running the full pipeline on one raster.
type Outcome struct {
	// Filled is the number of holes painted with ink.
	Filled int `json:"filled"`

	// Skipped is the number of holes protected.
	Skipped int `json:"skipped"`

	// Changed reports whether Result differs from the input.
	Changed bool `json:"changed"`

	// Empty reports that the raster held no contours and was skipped.
	Empty bool `json:"empty"`

	// Diff is the pixel comparison between input and Result.
	Diff *raster.DiffResult `json:"diff,omitempty"`

	// Result is the cleaned raster. It is a copy even when nothing changed.
	Result *raster.Raster `json:"-"`

	// Contours is the set extracted from the input snapshot.
	Contours *contour.Set `json:"-"`

	// Decisions holds the verdict for every hole, in contour order.
	Decisions []holes.Decision `json:"decisions"`
}

// Process extracts the contours of original, classifies every hole under p
// and paints the Fill holes onto a copy. original is never modified and the
// contour set is computed from it alone.
//
// A raster without contours is not an error: the Outcome has Empty set and
// Changed false.
func Process(original *raster.Raster, p holes.Policy) (*Outcome, error) {
	result := original.Clone()

	set, err := contour.Extract(original)
	if errors.Is(err, contour.ErrEmpty) {
		return &Outcome{
			Empty:     true,
			Result:    result,
			Contours:  set,
			Diff:      &raster.DiffResult{TotalPixels: len(original.Pix)},
			Decisions: []holes.Decision{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract contours: %w", err)
	}

	decisions := holes.Analyze(set, p)
	filled := Render(result, set, decisions)
	_, protected := holes.Count(decisions)

	diff, err := raster.Diff(original, result)
	if err != nil {
		return nil, fmt.Errorf("failed to compare result: %w", err)
	}

	return &Outcome{
		Filled:    filled,
		Skipped:   protected,
		Changed:   diff.Changed(),
		Diff:      diff,
		Result:    result,
		Contours:  set,
		Decisions: decisions,
	}, nil
}
