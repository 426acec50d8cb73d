package preprocess

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/batch"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// ResizeOptions configures the rename-and-resize pass.
type ResizeOptions struct {
	// MaxSide is the target length of the longer side, in pixels.
	MaxSide int `json:"max_side"`

	// Prefix names the output files <Prefix><n>.png.
	Prefix string `json:"prefix"`

	// ProgressEvery logs progress after this many files.
	ProgressEvery int `json:"progress_every"`
}

// DefaultResizeOptions returns a 500px target and the formula_images_ prefix.
func DefaultResizeOptions() ResizeOptions {
	return ResizeOptions{
		MaxSide:       500,
		Prefix:        "formula_images_",
		ProgressEvery: 10,
	}
}

// Validate checks that every option is in range.
func (o ResizeOptions) Validate() error {
	if o.MaxSide < 1 {
		return fmt.Errorf("max_side must be >= 1, got %d", o.MaxSide)
	}
	if o.Prefix == "" || strings.ContainsAny(o.Prefix, `/\`) {
		return fmt.Errorf("invalid prefix %q", o.Prefix)
	}
	if o.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must be >= 0, got %d", o.ProgressEvery)
	}
	return nil
}

var firstNumber = regexp.MustCompile(`\d+`)

// sourceIndex returns the first integer in name, or 0 when it has none.
func sourceIndex(name string) int {
	m := firstNumber.FindString(name)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ListJPEGs returns the .jpg files directly under root, ordered by the first
// integer in their name, largest first. Names without a number sort as 0.
func ListJPEGs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".jpg") {
			names = append(names, e.Name())
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return sourceIndex(names[i]) > sourceIndex(names[j])
	})
	return names, nil
}

// FitSize scales w×h so that the longer side equals maxSide, keeping the
// aspect ratio. Both results are at least 1.
func FitSize(w, h, maxSide int) (int, int) {
	ratio := float64(maxSide) / float64(w)
	if r := float64(maxSide) / float64(h); r < ratio {
		ratio = r
	}
	nw, nh := int(float64(w)*ratio), int(float64(h)*ratio)
	return max(nw, 1), max(nh, 1)
}

// Normalize resizes img so its longer side is maxSide, using Lanczos
// resampling, and converts it to 8-bit grayscale. Images are scaled up as
// well as down.
func Normalize(img image.Image, maxSide int) *image.Gray {
	b := img.Bounds()
	nw, nh := FitSize(b.Dx(), b.Dy(), maxSide)
	resized := imaging.Grayscale(imaging.Resize(img, nw, nh, imaging.Lanczos))

	gray := image.NewGray(resized.Bounds())
	draw.Draw(gray, gray.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return gray
}

// ResizeFiles renames every JPEG under root to <Prefix><i>.png, numbering
// from 1 in ListJPEGs order, normalizes it and removes the source once the
// PNG is saved. An existing PNG with the target name is overwritten.
func ResizeFiles(ctx context.Context, root string, o ResizeOptions, log *slog.Logger) (*Result, error) {
	log = logx.OrNop(log)
	names, err := ListJPEGs(root)
	if err != nil {
		return nil, err
	}
	res := &Result{Total: len(names)}
	log.Info("resizing images", "root", root, "files", len(names), "max_side", o.MaxSide)

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("resize interrupted: %w", err)
		}
		oldPath := filepath.Join(root, name)
		newName := fmt.Sprintf("%s%d.png", o.Prefix, i+1)

		img, err := raster.LoadImage(oldPath)
		if err != nil {
			res.Errors = append(res.Errors, &batch.FileError{Name: name, Kind: batch.KindRead, Err: err})
			log.Error("file failed", "file", name, "stage", "read", "error", err)
			continue
		}
		out := Normalize(img, o.MaxSide)
		if err := raster.SaveImage(filepath.Join(root, newName), out); err != nil {
			res.Errors = append(res.Errors, &batch.FileError{Name: name, Kind: batch.KindWrite, Err: err})
			log.Error("file failed", "file", name, "stage", "write", "error", err)
			continue
		}
		if err := os.Remove(oldPath); err != nil {
			res.Errors = append(res.Errors, &batch.FileError{Name: name, Kind: batch.KindWrite, Err: err})
			log.Error("failed to remove source", "file", name, "error", err)
			continue
		}

		res.Processed++
		if o.ProgressEvery > 0 && ((i+1)%o.ProgressEvery == 0 || i+1 == len(names)) {
			b := img.Bounds()
			log.Info("progress", "done", i+1, "total", len(names), "from", name, "to", newName,
				"size", fmt.Sprintf("%dx%d -> %dx%d", b.Dx(), b.Dy(), out.Bounds().Dx(), out.Bounds().Dy()))
		}
	}
	return res, nil
}
