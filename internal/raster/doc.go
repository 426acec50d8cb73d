// Package raster provides the two-valued pixel grid that every formula cleaning
// stage operates on.
//
// A Raster holds exactly one of two values per pixel, Ink or Background. Rasters
// are produced from decoded images by FromImage, which binarizes the input with a
// global threshold when it is not already two-valued, and written back by Save,
// which keeps the file format implied by the path's extension.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner. X increases
// rightward and Y increases downward. Reads outside the grid return Background,
// so neighbourhood scans never need explicit bounds checks.
//
// # Thread Safety
//
// A Raster is a plain value with no internal locking. Stages that mutate a raster
// (the fill renderer) work on a Clone; the snapshot taken before mutation is never
// written. The ImageCache type is safe for concurrent use.
package raster
