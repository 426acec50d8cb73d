package contour

import "github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"

// Extract computes the contour set of r.
//
// Ink components become outer boundaries (Parent -1). Background components
// that do not touch the raster border become holes whose parent is the ink
// component directly above their first pixel, which is always the enclosing
// one. Background regions connected to the border are the page itself and
// yield no contour.
//
// A raster without any ink yields an empty Set together with ErrEmpty.
func Extract(r *raster.Raster) (*Set, error) {
	set := &Set{Width: r.Width, Height: r.Height, Contours: make([]Contour, 0)}
	if r.Width == 0 || r.Height == 0 {
		return set, ErrEmpty
	}

	l := label(r)
	contourOf := make(map[int]int, len(l.components))

	for _, c := range l.components {
		switch {
		case c.value == raster.Ink:
			contourOf[c.id] = len(set.Contours)
			set.Contours = append(set.Contours, NewContour(trace(l, c.id, c.first, true), -1))

		case !c.touchesBorder:
			// The first pixel of an enclosed background region is never on
			// row 0, and the pixel above it is ink of the enclosing component.
			above := l.labels[c.first-l.width]
			parent, ok := contourOf[above]
			if !ok {
				continue
			}
			set.Contours = append(set.Contours, NewContour(trace(l, c.id, c.first, false), parent))
		}
	}

	if len(set.Contours) == 0 {
		return set, ErrEmpty
	}
	return set, nil
}
