package fill

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/contour"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// parseRaster builds a raster from rows where '#' is ink.
func parseRaster(t *testing.T, rows ...string) *raster.Raster {
	t.Helper()
	r := raster.New(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != r.Width {
			t.Fatalf("row %d has width %d, want %d", y, len(row), r.Width)
		}
		for x, ch := range row {
			if ch == '#' {
				r.Set(x, y, raster.Ink)
			}
		}
	}
	return r
}

func inTriangle(px, py float64, a, b, c [2]float64) bool {
	side := func(p, q [2]float64) float64 {
		return (px-q[0])*(p[1]-q[1]) - (p[0]-q[0])*(py-q[1])
	}
	d1, d2, d3 := side(a, b), side(b, c), side(c, a)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

// glyphA draws a filled "A": a thick triangle with a triangular counter
// and a 1x8 hairline crack through the base.
func glyphA(t *testing.T) *raster.Raster {
	t.Helper()
	outer := [3][2]float64{{40, 5}, {5, 75}, {75, 75}}
	inner := [3][2]float64{{40, 25}, {25, 55}, {55, 55}}

	r := raster.New(80, 80)
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			cx, cy := float64(x)+0.5, float64(y)+0.5
			if inTriangle(cx, cy, outer[0], outer[1], outer[2]) &&
				!inTriangle(cx, cy, inner[0], inner[1], inner[2]) {
				r.Set(x, y, raster.Ink)
			}
		}
	}
	for y := 60; y < 68; y++ {
		r.Set(40, y, raster.Background)
	}
	return r
}

// textRaster renders s with the 7x13 bitmap face, scaled up by k.
func textRaster(t *testing.T, s string, k int) *raster.Raster {
	t.Helper()
	src := image.NewGray(image.Rect(0, 0, 7*len(s)+8, 20))
	draw.Draw(src, src.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 15),
	}
	d.DrawString(s)

	b := src.Bounds()
	big := image.NewGray(image.Rect(0, 0, b.Dx()*k, b.Dy()*k))
	for y := 0; y < big.Bounds().Dy(); y++ {
		for x := 0; x < big.Bounds().Dx(); x++ {
			big.SetGray(x, y, src.GrayAt(x/k, y/k))
		}
	}
	r, _ := raster.FromImage(big)
	return r
}

func assertMonotone(t *testing.T, before, after *raster.Raster) {
	t.Helper()
	for i, p := range before.Pix {
		if p == raster.Ink && after.Pix[i] != raster.Ink {
			t.Fatalf("ink pixel %d was cleared", i)
		}
	}
}

func TestProcess_GlyphA(t *testing.T) {
	src := glyphA(t)
	original := src.Clone()

	out, err := Process(src, holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if out.Filled != 1 || out.Skipped != 1 {
		t.Fatalf("got filled=%d skipped=%d, want 1 and 1", out.Filled, out.Skipped)
	}
	if !out.Changed {
		t.Error("expected the crack to change the raster")
	}
	if out.Diff.InkAdded != 8 || out.Diff.InkRemoved != 0 {
		t.Errorf("diff: got %+v, want 8 added", out.Diff)
	}
	for y := 60; y < 68; y++ {
		if !out.Result.IsInk(40, y) {
			t.Errorf("crack pixel (40,%d) not filled", y)
		}
	}
	if out.Result.IsInk(40, 45) {
		t.Error("counter of the A must stay open")
	}
	if !raster.Equal(src, original) {
		t.Error("Process modified its input")
	}

	var counter *holes.Decision
	for i := range out.Decisions {
		if out.Decisions[i].Verdict == holes.Protect {
			counter = &out.Decisions[i]
		}
	}
	if counter == nil {
		t.Fatal("no protected decision")
	}
	if counter.Box.W < 25 || counter.Box.H < 25 || counter.Features.Area <= 100 {
		t.Errorf("unexpected counter geometry: %+v", counter)
	}
}

func TestProcess_Idempotent(t *testing.T) {
	first, err := Process(glyphA(t), holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	second, err := Process(first.Result, holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.Changed || second.Filled != 0 {
		t.Errorf("second pass changed the raster: filled=%d", second.Filled)
	}
	if second.Skipped != 1 {
		t.Errorf("protected counter should survive, skipped=%d", second.Skipped)
	}
}

func TestProcess_NoHolesIsNoOp(t *testing.T) {
	r := parseRaster(t,
		"........",
		".####...",
		".####...",
		"......#.",
		"........",
	)
	out, err := Process(r, holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Changed || out.Filled != 0 || out.Skipped != 0 {
		t.Errorf("expected no change, got %+v", out)
	}
	if !raster.Equal(r, out.Result) {
		t.Error("result differs from input")
	}
	if out.Result == r {
		t.Error("result must be a copy")
	}
}

func TestProcess_EmptyRaster(t *testing.T) {
	out, err := Process(raster.New(6, 4), holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("flat raster should not error: %v", err)
	}
	if !out.Empty || out.Changed {
		t.Errorf("got empty=%v changed=%v, want true false", out.Empty, out.Changed)
	}
	if len(out.Decisions) != 0 {
		t.Errorf("expected no decisions, got %d", len(out.Decisions))
	}
}

func TestProcess_ElongationGate(t *testing.T) {
	rows := []string{
		"........",
		".####...",
		".#..#...",
		".#..#...",
		".####...",
		"........",
	}

	p := holes.DefaultPolicy()
	out, err := Process(parseRaster(t, rows...), p)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Filled != 1 || out.Diff.InkAdded != 4 {
		t.Errorf("gate off: filled=%d added=%d, want 1 and 4", out.Filled, out.Diff.InkAdded)
	}

	p.UseElongationGate = true
	out, err = Process(parseRaster(t, rows...), p)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Filled != 0 || out.Skipped != 1 || out.Changed {
		t.Errorf("gate on: filled=%d skipped=%d changed=%v", out.Filled, out.Skipped, out.Changed)
	}
}

func TestProcess_IslandInsideFilledHole(t *testing.T) {
	r := parseRaster(t,
		".......",
		".#####.",
		".#...#.",
		".#.#.#.",
		".#...#.",
		".#####.",
		".......",
	)
	out, err := Process(r, holes.DefaultPolicy())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if out.Filled != 1 {
		t.Fatalf("filled: got %d, want 1", out.Filled)
	}
	for y := 1; y <= 5; y++ {
		for x := 1; x <= 5; x++ {
			if !out.Result.IsInk(x, y) {
				t.Errorf("pixel (%d,%d) should be ink", x, y)
			}
		}
	}
}

func TestRender_OnlyFillVerdicts(t *testing.T) {
	r := parseRaster(t,
		"..........",
		".####.###.",
		".#..#.#.#.",
		".#..#.###.",
		".####.....",
		"..........",
	)
	set, err := contour.Extract(r)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	decisions := holes.Analyze(set, holes.DefaultPolicy())
	if len(decisions) != 2 {
		t.Fatalf("expected 2 holes, got %d", len(decisions))
	}
	decisions[1].Verdict = holes.Protect

	result := r.Clone()
	if n := Render(result, set, decisions); n != 1 {
		t.Errorf("Render: got %d, want 1", n)
	}
	d, _ := raster.Diff(r, result)
	if d.InkAdded == 0 {
		t.Error("no pixels painted")
	}
	assertMonotone(t, r, result)

	box := decisions[1].Box
	for y := box.Y; y < box.Y+box.H; y++ {
		for x := box.X; x < box.X+box.W; x++ {
			if result.IsInk(x, y) {
				t.Errorf("protected pixel (%d,%d) was painted", x, y)
			}
		}
	}
}

func TestRender_NoDecisions(t *testing.T) {
	r := parseRaster(t, "###", "#.#", "###")
	set, _ := contour.Extract(r)
	result := r.Clone()
	if n := Render(result, set, nil); n != 0 {
		t.Errorf("Render: got %d, want 0", n)
	}
	if !raster.Equal(r, result) {
		t.Error("raster changed without decisions")
	}
}

func TestProcess_TextProperties(t *testing.T) {
	for _, s := range []string{"ABDOPQR", "0689", "x+y=z", "a_b^2"} {
		t.Run(s, func(t *testing.T) {
			src := textRaster(t, s, 3)
			original := src.Clone()

			out, err := Process(src, holes.DefaultPolicy())
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if !raster.Equal(src, original) {
				t.Fatal("input modified")
			}
			assertMonotone(t, src, out.Result)

			// Changes stay inside the boxes of filled holes.
			for y := 0; y < src.Height; y++ {
				for x := 0; x < src.Width; x++ {
					if src.At(x, y) == out.Result.At(x, y) {
						continue
					}
					inside := false
					for _, d := range out.Decisions {
						b := d.Box
						if d.Verdict == holes.Fill && x >= b.X && x < b.X+b.W && y >= b.Y && y < b.Y+b.H {
							inside = true
							break
						}
					}
					if !inside {
						t.Fatalf("pixel (%d,%d) changed outside any filled hole", x, y)
					}
				}
			}

			again, err := Process(out.Result, holes.DefaultPolicy())
			if err != nil {
				t.Fatalf("second Process failed: %v", err)
			}
			if again.Changed {
				t.Error("second pass changed the raster")
			}
		})
	}
}
