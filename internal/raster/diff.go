package raster

import "fmt"

// DiffResult summarizes a pixel-for-pixel comparison of two rasters.
type DiffResult struct {
	// PixelsDifferent is the number of positions whose values differ.
	PixelsDifferent int `json:"pixels_different"`

	// InkAdded counts positions that are Background in a and Ink in b.
	InkAdded int `json:"ink_added"`

	// InkRemoved counts positions that are Ink in a and Background in b.
	InkRemoved int `json:"ink_removed"`

	// TotalPixels is the number of compared positions.
	TotalPixels int `json:"total_pixels"`
}

// Changed reports whether any pixel differs.
func (d *DiffResult) Changed() bool {
	return d.PixelsDifferent > 0
}

// Diff compares a and b pixel by pixel.
//
// Both rasters must have the same dimensions; a size mismatch is an error rather
// than a partial comparison.
func Diff(a, b *Raster) (*DiffResult, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("raster size mismatch: %dx%d vs %dx%d",
			a.Width, a.Height, b.Width, b.Height)
	}

	res := &DiffResult{TotalPixels: len(a.Pix)}
	for i, pa := range a.Pix {
		pb := b.Pix[i]
		if pa == pb {
			continue
		}
		res.PixelsDifferent++
		if pb == Ink {
			res.InkAdded++
		} else {
			res.InkRemoved++
		}
	}
	return res, nil
}

// Equal reports whether a and b have the same size and identical pixels.
func Equal(a, b *Raster) bool {
	d, err := Diff(a, b)
	return err == nil && !d.Changed()
}
