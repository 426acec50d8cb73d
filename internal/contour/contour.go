package contour

import (
	"errors"
	"math"
)

// ErrEmpty is returned by Extract when the raster holds no boundaries at all.
// It marks an image to skip, not a failure.
var ErrEmpty = errors.New("no contours found")

// Point is a pixel corner in raster coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned bounding box. X and Y are the top-left corner, W and H
// the extent in pixels.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Contour is a closed boundary with its cached geometry.
type Contour struct {
	// Points are the boundary vertices in tracing order. The closing edge from
	// the last point back to the first is implicit.
	Points []Point `json:"points"`

	// Box is the bounding box of Points.
	Box Rect `json:"box"`

	// Area is the absolute polygon area enclosed by Points.
	Area float64 `json:"area"`

	// Parent is the index of the enclosing contour in the owning Set, or -1 for
	// an outer boundary.
	Parent int `json:"parent"`
}

// IsHole reports whether the contour has a parent.
func (c *Contour) IsHole() bool {
	return c.Parent >= 0
}

// Set is the full list of contours of one raster snapshot plus their hierarchy.
// Parents always precede their children.
type Set struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Contours []Contour `json:"contours"`
}

// Len returns the number of contours.
func (s *Set) Len() int {
	return len(s.Contours)
}

// Holes returns the indices of all contours that have a parent.
func (s *Set) Holes() []int {
	idx := make([]int, 0)
	for i := range s.Contours {
		if s.Contours[i].IsHole() {
			idx = append(idx, i)
		}
	}
	return idx
}

// Children returns the indices of the contours whose parent is i.
func (s *Set) Children(i int) []int {
	idx := make([]int, 0)
	for j := range s.Contours {
		if s.Contours[j].Parent == i {
			idx = append(idx, j)
		}
	}
	return idx
}

// NewContour builds a contour from its vertices, computing box and area.
func NewContour(points []Point, parent int) Contour {
	return Contour{
		Points: points,
		Box:    BoundingBox(points),
		Area:   PolygonArea(points),
		Parent: parent,
	}
}

// BoundingBox returns the smallest Rect containing all points.
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// PolygonArea returns the absolute area of the closed polygon through points
// (shoelace formula).
func PolygonArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	sum := 0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(float64(sum)) / 2
}
