package contour

import "github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"

// component is one connected region of a single pixel value.
type component struct {
	id            int
	value         raster.Pixel
	first         int // raster-order index of the top-left-most pixel
	size          int
	touchesBorder bool
}

// labeling assigns every pixel to a connected component. Ink components are
// 8-connected and background components 4-connected, so the two never cross
// each other at a diagonal.
type labeling struct {
	width      int
	height     int
	labels     []int
	components []component
}

// label scans r in raster order and flood-fills each unvisited pixel. The
// resulting components are ordered by their first pixel.
func label(r *raster.Raster) *labeling {
	l := &labeling{
		width:  r.Width,
		height: r.Height,
		labels: make([]int, len(r.Pix)),
	}
	for i := range l.labels {
		l.labels[i] = -1
	}

	var stack []int
	for start := range r.Pix {
		if l.labels[start] >= 0 {
			continue
		}
		c := component{id: len(l.components), value: r.Pix[start], first: start}
		stack = floodFill(r, l, &c, start, stack[:0])
		l.components = append(l.components, c)
	}
	return l
}

// floodFill performs an iterative flood fill from start, labelling every
// reachable pixel of the same value with c.id.
//
// Uses an explicit stack rather than recursion to avoid stack overflow on large
// strokes. The stack slice is returned so its backing array can be reused.
func floodFill(r *raster.Raster, l *labeling, c *component, start int, stack []int) []int {
	eight := c.value == raster.Ink
	stack = append(stack, start)
	l.labels[start] = c.id

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c.size++

		x, y := i%l.width, i/l.width
		if x == 0 || y == 0 || x == l.width-1 || y == l.height-1 {
			c.touchesBorder = true
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				if !eight && dx != 0 && dy != 0 {
					continue
				}
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= l.width || ny >= l.height {
					continue
				}
				j := ny*l.width + nx
				if l.labels[j] >= 0 || r.Pix[j] != c.value {
					continue
				}
				l.labels[j] = c.id
				stack = append(stack, j)
			}
		}
	}
	return stack
}

// at returns the component id at (x, y), or -1 outside the raster.
func (l *labeling) at(x, y int) int {
	if x < 0 || y < 0 || x >= l.width || y >= l.height {
		return -1
	}
	return l.labels[y*l.width+x]
}
