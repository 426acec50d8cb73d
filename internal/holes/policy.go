package holes

import (
	"errors"
	"fmt"
)

// Policy holds the tunable thresholds of the classifier. The zero value is not
// useful; start from DefaultPolicy.
type Policy struct {
	// ThinMaxSide: a hole whose width and height are both at most this value is thin.
	ThinMaxSide int `json:"thin_max_side"`

	// ThinMinSide: a hole whose width or height is at most this value is thin.
	ThinMinSide int `json:"thin_min_side"`

	// InteriorArea: holes with a larger area are always protected.
	InteriorArea float64 `json:"interior_area"`

	// RoundArea and RoundAspect: holes larger than RoundArea with an aspect ratio
	// below RoundAspect are protected as round glyph loops.
	RoundArea   float64 `json:"round_area"`
	RoundAspect float64 `json:"round_aspect"`

	// ElongationRatio: aspect ratios above this value mark a hole as elongated.
	ElongationRatio float64 `json:"elongation_ratio"`

	// UseElongationGate additionally requires a hole to be elongated before it
	// is filled.
	UseElongationGate bool `json:"use_elongation_gate"`
}

// DefaultPolicy returns the thresholds the cleaning tool has always used.
func DefaultPolicy() Policy {
	return Policy{
		ThinMaxSide:       5,
		ThinMinSide:       3,
		InteriorArea:      100,
		RoundArea:         50,
		RoundAspect:       2.0,
		ElongationRatio:   3.0,
		UseElongationGate: false,
	}
}

// Validate reports every threshold that cannot produce a meaningful
// classification.
func (p Policy) Validate() error {
	var errs []error
	if p.ThinMaxSide < 0 {
		errs = append(errs, fmt.Errorf("thin_max_side must be >= 0, got %d", p.ThinMaxSide))
	}
	if p.ThinMinSide < 0 {
		errs = append(errs, fmt.Errorf("thin_min_side must be >= 0, got %d", p.ThinMinSide))
	}
	if p.InteriorArea < 0 {
		errs = append(errs, fmt.Errorf("interior_area must be >= 0, got %g", p.InteriorArea))
	}
	if p.RoundArea < 0 {
		errs = append(errs, fmt.Errorf("round_area must be >= 0, got %g", p.RoundArea))
	}
	if p.RoundAspect <= 0 {
		errs = append(errs, fmt.Errorf("round_aspect must be > 0, got %g", p.RoundAspect))
	}
	if p.ElongationRatio <= 0 {
		errs = append(errs, fmt.Errorf("elongation_ratio must be > 0, got %g", p.ElongationRatio))
	}
	return errors.Join(errs...)
}
