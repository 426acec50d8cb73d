package preprocess

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/batch"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// BinarizeOptions tunes the edge-based binarization.
type BinarizeOptions struct {
	// Contrast is the relative contrast change applied first; 0.5 raises
	// contrast by half.
	Contrast float64 `json:"contrast"`

	// BlurRadius is the Gaussian blur radius applied before the gradient.
	BlurRadius float64 `json:"blur_radius"`

	// EdgeThreshold: pixels whose normalized gradient magnitude (0..255) is
	// strictly above it become ink.
	EdgeThreshold int `json:"edge_threshold"`

	// ProgressEvery logs progress after this many processed files.
	ProgressEvery int `json:"progress_every"`
}

// DefaultBinarizeOptions returns the settings the scans were tuned with.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{
		Contrast:      0.5,
		BlurRadius:    1.1,
		EdgeThreshold: 30,
		ProgressEvery: 20,
	}
}

// Validate checks that every option is in range.
func (o BinarizeOptions) Validate() error {
	var errs []error
	if o.Contrast < -1 {
		errs = append(errs, fmt.Errorf("contrast must be >= -1, got %g", o.Contrast))
	}
	if o.BlurRadius < 0 {
		errs = append(errs, fmt.Errorf("blur_radius must be >= 0, got %g", o.BlurRadius))
	}
	if o.EdgeThreshold < 0 || o.EdgeThreshold > 255 {
		errs = append(errs, fmt.Errorf("edge_threshold must be in 0..255, got %d", o.EdgeThreshold))
	}
	if o.ProgressEvery < 0 {
		errs = append(errs, fmt.Errorf("progress_every must be >= 0, got %d", o.ProgressEvery))
	}
	return errors.Join(errs...)
}

// Binarize marks the strokes of img as ink.
//
// The image is contrast-enhanced, converted to grayscale and blurred. The
// Sobel gradient magnitude is then stretched to 0..255 and every pixel above
// EdgeThreshold becomes ink. Finally specks that do not fill any 2x2 square
// are removed.
//
// A flat image has no gradient and yields a raster without ink.
func Binarize(img image.Image, o BinarizeOptions) *raster.Raster {
	var work image.Image = img
	if o.Contrast != 0 {
		work = adjust.Contrast(work, o.Contrast)
	}
	work = effect.Grayscale(work)
	if o.BlurRadius > 0 {
		work = blur.Gaussian(work, o.BlurRadius)
	}

	mag, width, height := sobelMagnitude(work)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, m := range mag {
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)
	}

	r := raster.New(width, height)
	if len(mag) == 0 || hi-lo == 0 {
		return r
	}
	scale := 255 / (hi - lo)
	threshold := float64(o.EdgeThreshold)
	for i, m := range mag {
		if math.Round((m-lo)*scale) > threshold {
			r.Pix[i] = raster.Ink
		}
	}
	return despeckle(r)
}

// sobelMagnitude returns the gradient magnitude of the luminance of img in
// row-major order. Borders replicate the edge pixels.
func sobelMagnitude(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	gray := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			gray[y*width+x] = float64(g.Y)
		}
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	mag := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := gray[clamp(y+ky, 0, height-1)*width+clamp(x+kx, 0, width-1)]
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			mag[y*width+x] = math.Hypot(gx, gy)
		}
	}
	return mag, width, height
}

// despeckle keeps only ink pixels that belong to a fully inked 2x2 square.
// On the inverted image this is a 2x2 closing of the background.
func despeckle(r *raster.Raster) *raster.Raster {
	out := raster.New(r.Width, r.Height)
	for y := 0; y+1 < r.Height; y++ {
		for x := 0; x+1 < r.Width; x++ {
			if r.IsInk(x, y) && r.IsInk(x+1, y) && r.IsInk(x, y+1) && r.IsInk(x+1, y+1) {
				out.Set(x, y, raster.Ink)
				out.Set(x+1, y, raster.Ink)
				out.Set(x, y+1, raster.Ink)
				out.Set(x+1, y+1, raster.Ink)
			}
		}
	}
	return out
}

func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}

// Result summarizes a directory pass.
type Result struct {
	Total     int     `json:"total"`
	Processed int     `json:"processed"`
	Errors    []error `json:"-"`
}

// Footer is the closing report line.
func (r *Result) Footer() string {
	line := fmt.Sprintf("%d/%d files processed", r.Processed, r.Total)
	if n := len(r.Errors); n > 0 {
		line += fmt.Sprintf(" (%d failed)", n)
	}
	return line
}

// BinarizeFiles binarizes the named files of root in order and writes each
// back in place. A failing file is logged and recorded; the pass continues.
// The returned error is non-nil only when ctx is cancelled.
func BinarizeFiles(ctx context.Context, root string, names []string, o BinarizeOptions, log *slog.Logger) (*Result, error) {
	log = logx.OrNop(log)
	res := &Result{Total: len(names)}
	log.Info("binarizing images", "root", root, "files", len(names), "edge_threshold", o.EdgeThreshold)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("binarize interrupted: %w", err)
		}
		path := filepath.Join(root, name)

		img, err := raster.LoadImage(path)
		if err != nil {
			res.Errors = append(res.Errors, &batch.FileError{Name: name, Kind: batch.KindRead, Err: err})
			log.Error("file failed", "file", name, "stage", "read", "error", err)
			continue
		}
		if err := raster.Save(path, Binarize(img, o)); err != nil {
			res.Errors = append(res.Errors, &batch.FileError{Name: name, Kind: batch.KindWrite, Err: err})
			log.Error("file failed", "file", name, "stage", "write", "error", err)
			continue
		}

		res.Processed++
		if o.ProgressEvery > 0 && (res.Processed%o.ProgressEvery == 0 || res.Processed == res.Total) {
			log.Info("progress", "done", res.Processed, "total", res.Total)
		}
	}
	return res, nil
}
