package holes

import (
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/contour"
)

// Verdict is the outcome for one hole.
type Verdict int

const (
	// Protect leaves the hole untouched.
	Protect Verdict = iota
	// Fill paints the hole with ink.
	Fill
)

// String returns "fill" or "protect".
func (v Verdict) String() string {
	if v == Fill {
		return "fill"
	}
	return "protect"
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Features are the geometric measurements of a single hole.
type Features struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Area        float64 `json:"area"`
	AspectRatio float64 `json:"aspect_ratio"`
	Thin        bool    `json:"thin"`
	Elongated   bool    `json:"elongated"`
	Interior    bool    `json:"interior"`
}

// Measure computes the features of a hole with the given bounding box size and
// area under policy p.
func Measure(w, h int, area float64, p Policy) Features {
	longer, shorter := w, h
	if shorter > longer {
		longer, shorter = shorter, longer
	}
	if shorter < 1 {
		shorter = 1
	}
	aspect := float64(longer) / float64(shorter)

	return Features{
		Width:       w,
		Height:      h,
		Area:        area,
		AspectRatio: aspect,
		Thin:        (w <= p.ThinMaxSide && h <= p.ThinMaxSide) || w <= p.ThinMinSide || h <= p.ThinMinSide,
		Elongated:   aspect > p.ElongationRatio,
		Interior:    area > p.InteriorArea || (area > p.RoundArea && aspect < p.RoundAspect),
	}
}

// Classify returns the verdict for a hole with features f.
func Classify(f Features, p Policy) Verdict {
	fill := f.Thin && !f.Interior
	if p.UseElongationGate {
		fill = fill && f.Elongated
	}
	if fill {
		return Fill
	}
	return Protect
}

// Decision pairs a hole with its features and verdict.
type Decision struct {
	// Index is the position of the hole in the contour set.
	Index    int          `json:"index"`
	Box      contour.Rect `json:"box"`
	Features Features     `json:"features"`
	Verdict  Verdict      `json:"verdict"`
}

// Analyze classifies every hole of set, in contour order. Outer boundaries are
// never candidates and do not appear in the result.
func Analyze(set *contour.Set, p Policy) []Decision {
	decisions := make([]Decision, 0)
	for i := range set.Contours {
		c := &set.Contours[i]
		if !c.IsHole() {
			continue
		}
		f := Measure(c.Box.W, c.Box.H, c.Area, p)
		decisions = append(decisions, Decision{
			Index:    i,
			Box:      c.Box,
			Features: f,
			Verdict:  Classify(f, p),
		})
	}
	return decisions
}

// Count returns the number of fill and protect verdicts in decisions.
func Count(decisions []Decision) (filled, protected int) {
	for _, d := range decisions {
		if d.Verdict == Fill {
			filled++
		} else {
			protected++
		}
	}
	return filled, protected
}
