// Package contour extracts boundaries and their two-level hierarchy from a
// binary raster.
//
// Ink is the foreground of interest. Every 8-connected ink component yields one
// top-level contour, its outer boundary. Every 4-connected background component
// that does not reach the raster border is a hole: it yields a contour whose
// parent is the ink component that directly encloses it. Ink islands sitting
// inside a hole are again top-level, so the hierarchy never nests deeper than
// outer boundary and hole.
//
// # Boundary Geometry
//
// Contours follow pixel edges rather than pixel centres. Vertices are pixel
// corners, so for a region covering pixels x0..x1 the bounding box runs from x0
// to x1+1 and its width is the pixel extent of the region. The shoelace area of a
// hole contour equals the number of pixels it encloses: a 2×2 hole has a 2×2
// bounding box and area 4. Only direction changes are stored as vertices.
//
// # Lifecycle
//
// A Set is computed once from a raster snapshot and never mutated. Callers that
// modify pixels must do so on a clone and keep using the original Set.
package contour
