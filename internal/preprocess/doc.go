// Package preprocess prepares scanned formula images for hole filling.
//
// Resize renames camera JPEGs to formula_images_<n>.png, scales them so the
// longer side matches a target and converts them to 8-bit grayscale.
// Binarize turns a grayscale scan into a two-valued raster by keeping only
// pixels with a strong intensity gradient, so strokes become ink regardless
// of lighting.
//
// Both operate on whole directories and keep going when a single file fails.
package preprocess
