package contour

// direction is a unit step between pixel corners.
type direction int

const (
	east direction = iota
	south
	west
	north
)

var steps = [4]Point{
	east:  {X: 1, Y: 0},
	south: {X: 0, Y: 1},
	west:  {X: -1, Y: 0},
	north: {X: 0, Y: -1},
}

func (d direction) right() direction { return (d + 1) % 4 }
func (d direction) left() direction  { return (d + 3) % 4 }

// ahead returns the pixels on the left and right of the edge leaving corner c
// in direction d. The region being traced is always kept on the right.
func ahead(c Point, d direction) (left, right Point) {
	switch d {
	case east:
		return Point{c.X, c.Y - 1}, Point{c.X, c.Y}
	case south:
		return Point{c.X, c.Y}, Point{c.X - 1, c.Y}
	case west:
		return Point{c.X - 1, c.Y}, Point{c.X - 1, c.Y - 1}
	default:
		return Point{c.X - 1, c.Y - 1}, Point{c.X, c.Y - 1}
	}
}

// trace follows the outer pixel-edge boundary of component id clockwise,
// starting at the top-left corner of its first pixel, and returns the corners
// where the direction changes.
//
// With eight set, diagonal neighbours belong to the region and the tracer turns
// left through a diagonal pinch; otherwise it turns right and keeps the region
// 4-connected.
func trace(l *labeling, id, first int, eight bool) []Point {
	in := func(p Point) bool { return l.at(p.X, p.Y) == id }

	start := Point{X: first % l.width, Y: first / l.width}
	points := []Point{start}

	// Each corner can be passed at most once per direction.
	limit := 4*(l.width+1)*(l.height+1) + 4

	c, d := start, east
	for n := 0; n < limit; n++ {
		c = Point{X: c.X + steps[d].X, Y: c.Y + steps[d].Y}

		left, right := ahead(c, d)
		next := d
		if eight {
			switch {
			case in(left):
				next = d.left()
			case !in(right):
				next = d.right()
			}
		} else {
			switch {
			case !in(right):
				next = d.right()
			case in(left):
				next = d.left()
			}
		}

		if c == start && next == east {
			break
		}
		if next != d {
			points = append(points, c)
		}
		d = next
	}
	return points
}
