// Package holes decides, for every hole of a contour set, whether it is a thin
// stroke-break artifact to fill or an intentional glyph interior to protect.
//
// # Features
//
// For a hole with bounding box w×h and polygon area a:
//
//	aspect    = max(w,h) / max(min(w,h), 1)
//	thin      = (w <= ThinMaxSide && h <= ThinMaxSide) || w <= ThinMinSide || h <= ThinMinSide
//	elongated = aspect > ElongationRatio
//	interior  = a > InteriorArea || (a > RoundArea && aspect < RoundAspect)
//
// # Verdict
//
// A hole is filled when it is thin and not an interior. The elongation feature
// is always computed and reported, but it only takes part in the verdict when
// Policy.UseElongationGate is set; the default policy leaves it out.
//
// Classification is a pure function of the hole geometry and the policy. Holes
// never influence each other and every hole receives exactly one verdict.
package holes
