package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/batch"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/config"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/fill"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/overlay"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/preprocess"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/server"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/trim"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Environ())
	stop()
	os.Exit(code)
}

// run dispatches args to a subcommand and returns the process exit code.
// Report lines go to stdout, logs and usage errors to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, environ []string) int {
	cmd := "fill"
	if len(args) > 0 {
		switch args[0] {
		case "--version", "-v", "version":
			fmt.Fprintf(stdout, "formula-tools %s\n", Version)
			fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
			return exitOK
		case "--help", "-h", "help":
			printUsage(stdout)
			return exitOK
		case "fill", "inspect", "binarize", "resize", "trim", "serve":
			cmd, args = args[0], args[1:]
		}
	}

	c := &command{name: cmd, stdout: stdout, stderr: stderr, environ: environ}
	switch cmd {
	case "inspect":
		return c.inspect(args)
	case "binarize":
		return c.binarize(ctx, args)
	case "resize":
		return c.resize(ctx, args)
	case "trim":
		return c.trim(ctx, args)
	case "serve":
		return c.serve(ctx, args)
	default:
		return c.fill(ctx, args)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "formula-tools - clean up handwritten formula images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: formula-tools [command] [flags] [root]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  fill        Fill thin gaps in every matching image (default)")
	fmt.Fprintln(w, "  inspect     Print the hole decisions of one image")
	fmt.Fprintln(w, "  binarize    Edge-based binarization of every matching image")
	fmt.Fprintln(w, "  resize      Rename, grayscale and resize the JPEG scans of a directory")
	fmt.Fprintln(w, "  trim        Crop images to the selections of a targets file")
	fmt.Fprintln(w, "  serve       Run the MCP server over stdin/stdout")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'formula-tools <command> -h' for the flags of a command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %sROOT, %sPATTERN, %sORDERING,\n", config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
	fmt.Fprintf(w, "  %sCONCURRENCY, %sDRY_RUN, %sLOG_LEVEL\n", config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
}

// command carries the streams and environment shared by every subcommand.
type command struct {
	name    string
	stdout  io.Writer
	stderr  io.Writer
	environ []string

	configPath string
	logLevel   string
}

// flags returns a flag set with the options every subcommand accepts.
func (c *command) flags() *flag.FlagSet {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&c.configPath, "config", "", "JSON config file")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn or error")
	return fs
}

// parse parses args and takes an optional positional root.
func (c *command) parse(fs *flag.FlagSet, args []string, root *string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	switch {
	case fs.NArg() == 1 && root != nil:
		*root = fs.Arg(0)
	case fs.NArg() > 0:
		return c.usageError("unexpected arguments: %v", fs.Args()), false
	}
	return exitOK, true
}

// load layers the config file, the environment and over, then validates the
// result.
func (c *command) load(over config.Config) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.configPath, c.environ)
	if err != nil {
		return cfg, nil, err
	}
	over.LogLevel = c.logLevel
	cfg = config.Merge(cfg, over)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	level, _ := logx.ParseLevel(cfg.LogLevel)
	return cfg, logx.New(c.stderr, level), nil
}

func (c *command) usageError(format string, args ...interface{}) int {
	fmt.Fprintf(c.stderr, "formula-tools %s: %s\n", c.name, fmt.Sprintf(format, args...))
	return exitUsage
}

func (c *command) failure(err error) int {
	fmt.Fprintf(c.stderr, "formula-tools %s: %v\n", c.name, err)
	return exitFailed
}

// fill runs the batch cleaner over a directory.
func (c *command) fill(ctx context.Context, args []string) int {
	fs := c.flags()
	var over config.Config
	fs.StringVar(&over.Root, "root", "", "directory holding the images")
	fs.StringVar(&over.Pattern, "pattern", "", "regular expression matched against file names")
	fs.StringVar(&over.Ordering, "ordering", "", "processing order: lexical or numeric")
	fs.IntVar(&over.Concurrency, "concurrency", 0, "number of files processed at once")
	fs.BoolVar(&over.DryRun, "dry-run", false, "report without writing files")
	gate := fs.Bool("gate", false, "only fill elongated holes")
	if code, ok := c.parse(fs, args, &over.Root); !ok {
		return code
	}

	cfg, log, err := c.load(over)
	if err != nil {
		return c.usageError("%v", err)
	}
	if *gate {
		cfg.Policy.UseElongationGate = true
	}

	opts := cfg.RunnerOptions()
	opts.Logger = log
	runner, err := batch.NewRunner(opts)
	if err != nil {
		return c.usageError("%v", err)
	}

	summary, err := runner.Run(ctx)
	if summary != nil {
		if werr := summary.WriteReport(c.stdout); werr != nil {
			log.Error("failed to write report", "error", werr)
		}
	}
	if err != nil {
		return c.failure(err)
	}
	if summary.Failed > 0 {
		return exitFailed
	}
	return exitOK
}

// inspect prints the decision for every hole of a single image.
func (c *command) inspect(args []string) int {
	fs := c.flags()
	overlayPath := fs.String("overlay", "", "write an annotated PNG to this path")
	gate := fs.Bool("gate", false, "only fill elongated holes")
	var file string
	if code, ok := c.parse(fs, args, &file); !ok {
		return code
	}
	if file == "" {
		return c.usageError("an image file is required")
	}

	cfg, log, err := c.load(config.Config{})
	if err != nil {
		return c.usageError("%v", err)
	}
	if *gate {
		cfg.Policy.UseElongationGate = true
	}

	r, thresholded, err := raster.Load(file)
	if err != nil {
		return c.failure(err)
	}
	if thresholded {
		log.Warn("image is not two-valued, thresholded at mid gray", "file", file)
	}
	out, err := fill.Process(r, cfg.Policy)
	if err != nil {
		return c.failure(err)
	}

	contours := 0
	if out.Contours != nil {
		contours = out.Contours.Len()
	}
	fmt.Fprintf(c.stdout, "%s: %dx%d, %d contours, filled %d, protected %d\n",
		file, r.Width, r.Height, contours, out.Filled, out.Skipped)
	for _, d := range out.Decisions {
		f := d.Features
		fmt.Fprintf(c.stdout, "  #%d %-7s box %dx%d+%d+%d area %.1f aspect %.2f thin=%v elongated=%v interior=%v\n",
			d.Index, d.Verdict, d.Box.W, d.Box.H, d.Box.X, d.Box.Y,
			f.Area, f.AspectRatio, f.Thin, f.Elongated, f.Interior)
	}

	if *overlayPath != "" {
		img, err := overlay.Render(r, out, cfg.Overlay)
		if err != nil {
			return c.usageError("%v", err)
		}
		if err := raster.SaveImage(*overlayPath, img); err != nil {
			return c.failure(err)
		}
		log.Info("overlay written", "path", *overlayPath)
	}
	return exitOK
}

// binarize converts every matching image of a directory to edge ink.
func (c *command) binarize(ctx context.Context, args []string) int {
	fs := c.flags()
	var over config.Config
	fs.StringVar(&over.Root, "root", "", "directory holding the images")
	fs.StringVar(&over.Pattern, "pattern", "", "regular expression matched against file names")
	threshold := fs.Int("edge-threshold", -1, "normalized gradient above which a pixel is ink (0..255)")
	if code, ok := c.parse(fs, args, &over.Root); !ok {
		return code
	}

	cfg, log, err := c.load(over)
	if err != nil {
		return c.usageError("%v", err)
	}
	if *threshold >= 0 {
		cfg.Binarize.EdgeThreshold = *threshold
		if err := cfg.Binarize.Validate(); err != nil {
			return c.usageError("%v", err)
		}
	}
	if cfg.Root == "" {
		return c.usageError("root is required")
	}

	order, _ := batch.ParseOrdering(cfg.Ordering)
	names, err := batch.Discover(cfg.Root, regexp.MustCompile(cfg.Pattern), order)
	if err != nil {
		return c.failure(err)
	}
	res, err := preprocess.BinarizeFiles(ctx, cfg.Root, names, cfg.Binarize, log)
	return c.finish(res.Errors, res.Footer(), err)
}

// resize normalizes the JPEG scans of a directory into numbered PNGs.
func (c *command) resize(ctx context.Context, args []string) int {
	fs := c.flags()
	var over config.Config
	fs.StringVar(&over.Root, "root", "", "directory holding the scans")
	maxSide := fs.Int("max-side", 0, "length of the longer side after resizing")
	if code, ok := c.parse(fs, args, &over.Root); !ok {
		return code
	}

	cfg, log, err := c.load(over)
	if err != nil {
		return c.usageError("%v", err)
	}
	if *maxSide != 0 {
		cfg.Resize.MaxSide = *maxSide
		if err := cfg.Resize.Validate(); err != nil {
			return c.usageError("%v", err)
		}
	}
	if cfg.Root == "" {
		return c.usageError("root is required")
	}

	res, err := preprocess.ResizeFiles(ctx, cfg.Root, cfg.Resize, log)
	if res == nil {
		return c.failure(err)
	}
	return c.finish(res.Errors, res.Footer(), err)
}

// trim replays the crop selections of a targets file.
func (c *command) trim(ctx context.Context, args []string) int {
	fs := c.flags()
	var over config.Config
	fs.StringVar(&over.Root, "root", "", "directory holding the images")
	targetsPath := fs.String("targets", "", "file listing the images and their crop rectangles")
	if code, ok := c.parse(fs, args, &over.Root); !ok {
		return code
	}
	if *targetsPath == "" {
		return c.usageError("-targets is required")
	}

	cfg, log, err := c.load(over)
	if err != nil {
		return c.usageError("%v", err)
	}
	if cfg.Root == "" {
		return c.usageError("root is required")
	}
	targets, err := trim.LoadTargets(*targetsPath)
	if err != nil {
		return c.usageError("%v", err)
	}

	res, err := trim.Replay(ctx, cfg.Root, targets, log)
	return c.finish(res.Errors, res.Footer(), err)
}

// finish prints the per-file errors and the footer of a directory pass.
func (c *command) finish(errs []error, footer string, err error) int {
	for _, e := range errs {
		fmt.Fprintf(c.stdout, "error: %v\n", e)
	}
	fmt.Fprintln(c.stdout, footer)
	if err != nil {
		return c.failure(err)
	}
	if len(errs) > 0 {
		return exitFailed
	}
	return exitOK
}

// serve runs the MCP server until stdin is closed.
func (c *command) serve(ctx context.Context, args []string) int {
	fs := c.flags()
	if code, ok := c.parse(fs, args, nil); !ok {
		return code
	}
	cfg, log, err := c.load(config.Config{})
	if err != nil {
		return c.usageError("%v", err)
	}

	log.Debug("formula-tools MCP server", "version", Version, "built", BuildTime, "commit", GitCommit)
	srv := server.New(cfg, Version, log)
	if err := srv.Run(ctx); err != nil {
		return c.failure(err)
	}
	return exitOK
}
