package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"

	"golang.org/x/sync/errgroup"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/fill"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// Options configures a Runner.
type Options struct {
	// Root is the directory holding the images. Required.
	Root string

	// Pattern is matched against file names. Empty means DefaultPattern.
	Pattern string

	Ordering Ordering

	// Concurrency bounds the number of files processed at once. Values below
	// one mean one.
	Concurrency int

	// DryRun computes every result but writes nothing.
	DryRun bool

	Policy holes.Policy

	// Logger receives progress and failures. Nil disables logging.
	Logger *slog.Logger
}

// Runner processes the images of one directory.
type Runner struct {
	opts    Options
	pattern *regexp.Regexp
	log     *slog.Logger
	save    func(path string, r *raster.Raster) error
}

// NewRunner validates opts and returns a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Root == "" {
		return nil, errors.New("root directory is required")
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	pattern, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}
	order, err := ParseOrdering(string(opts.Ordering))
	if err != nil {
		return nil, err
	}
	opts.Ordering = order
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	return &Runner{
		opts:    opts,
		pattern: pattern,
		log:     logx.OrNop(opts.Logger),
		save:    raster.Save,
	}, nil
}

// Run processes every discovered file and returns the summary in discovery
// order. Per-file failures are recorded in the summary, not returned.
//
// The returned error is non-nil only when the directory cannot be listed or
// ctx is cancelled. On cancellation no new file is started and the summary
// covers the files that were.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	names, err := Discover(r.opts.Root, r.pattern, r.opts.Ordering)
	if err != nil {
		return nil, err
	}
	r.log.Info("starting batch", "root", r.opts.Root, "files", len(names),
		"ordering", string(r.opts.Ordering), "dry_run", r.opts.DryRun)

	results := make([]FileResult, len(names))
	started := 0

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		started++
		i, name := i, name
		g.Go(func() error {
			results[i] = r.ProcessFile(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	summary := newSummary(len(names), results[:started])
	r.log.Info("batch finished", "changed", summary.Changed, "unchanged", summary.Unchanged,
		"failed", summary.Failed, "total", summary.Total)

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("batch interrupted: %w", err)
	}
	return summary, nil
}

// ProcessFile runs the pipeline on one file of the root directory.
func (r *Runner) ProcessFile(ctx context.Context, name string) FileResult {
	res := FileResult{Name: name}
	if err := ctx.Err(); err != nil {
		return res.fail(KindCancel, err, r.log)
	}

	path := filepath.Join(r.opts.Root, name)
	src, _, err := raster.Load(path)
	if err != nil {
		return res.fail(KindRead, err, r.log)
	}

	out, err := fill.Process(src, r.opts.Policy)
	if err != nil {
		return res.fail(KindProcess, err, r.log)
	}
	res.Filled = out.Filled
	res.Protected = out.Skipped
	res.Changed = out.Changed
	res.Empty = out.Empty

	if out.Empty {
		r.log.Debug("no contours", "file", name)
	}
	if !out.Changed {
		return res
	}

	if !r.opts.DryRun {
		if err := r.save(path, out.Result); err != nil {
			res.Changed = false
			return res.fail(KindWrite, err, r.log)
		}
	}
	r.log.Debug("filled holes", "file", name, "filled", out.Filled,
		"protected", out.Skipped, "pixels", out.Diff.InkAdded)
	return res
}
