// Package config loads formula-tools settings.
//
// Settings are layered, later layers winning: Defaults, a JSON file, the
// FORMULA_TOOLS_* environment variables, then command-line flags applied by
// the caller. The JSON file is decoded strictly and unknown fields are an
// error.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/batch"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/holes"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/overlay"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/preprocess"
)

// EnvPrefix prefixes every environment variable read by EnvOverlay.
const EnvPrefix = "FORMULA_TOOLS_"

// Config holds every setting of the tool set.
type Config struct {
	// Root is the directory holding the images.
	Root        string `json:"root"`
	Pattern     string `json:"pattern"`
	Ordering    string `json:"ordering"`
	Concurrency int    `json:"concurrency"`
	DryRun      bool   `json:"dry_run"`
	LogLevel    string `json:"log_level"`

	Policy   holes.Policy               `json:"policy"`
	Binarize preprocess.BinarizeOptions `json:"binarize"`
	Resize   preprocess.ResizeOptions   `json:"resize"`
	Overlay  overlay.Options            `json:"overlay"`
}

// Defaults returns the settings used when nothing else is given. Root has no
// default.
func Defaults() Config {
	return Config{
		Pattern:     batch.DefaultPattern,
		Ordering:    string(batch.OrderLexical),
		Concurrency: 1,
		LogLevel:    "info",
		Policy:      holes.DefaultPolicy(),
		Binarize:    preprocess.DefaultBinarizeOptions(),
		Resize:      preprocess.DefaultResizeOptions(),
		Overlay:     overlay.DefaultOptions(),
	}
}

// LoadJSON decodes a config from raw, or from the file at path when raw is
// empty. Fields absent from the JSON keep their default values.
func LoadJSON(path string, raw []byte) (Config, error) {
	cfg := Defaults()
	var r io.Reader
	switch {
	case len(raw) > 0:
		r = bytes.NewReader(raw)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		r = f
	default:
		return cfg, errors.New("no config source provided")
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of over onto base. Nested option
// groups are replaced as a whole when over sets any of their fields.
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Root); s != "" {
		out.Root = s
	}
	if over.Pattern != "" {
		out.Pattern = over.Pattern
	}
	if s := strings.TrimSpace(over.Ordering); s != "" {
		out.Ordering = s
	}
	if over.Concurrency != 0 {
		out.Concurrency = over.Concurrency
	}
	if over.DryRun {
		out.DryRun = true
	}
	if s := strings.TrimSpace(over.LogLevel); s != "" {
		out.LogLevel = s
	}
	if over.Policy != (holes.Policy{}) {
		out.Policy = over.Policy
	}
	if over.Binarize != (preprocess.BinarizeOptions{}) {
		out.Binarize = over.Binarize
	}
	if over.Resize != (preprocess.ResizeOptions{}) {
		out.Resize = over.Resize
	}
	if over.Overlay != (overlay.Options{}) {
		out.Overlay = over.Overlay
	}
	return out
}

// EnvOverlay builds an overlay from environment entries in "KEY=value" form.
// Recognized keys are ROOT, PATTERN, ORDERING, CONCURRENCY, DRY_RUN and
// LOG_LEVEL, each prefixed with EnvPrefix. Other keys are ignored.
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		switch strings.TrimPrefix(key, EnvPrefix) {
		case "ROOT":
			over.Root = strings.TrimSpace(val)
		case "PATTERN":
			over.Pattern = val
		case "ORDERING":
			over.Ordering = strings.TrimSpace(val)
		case "CONCURRENCY":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
			}
			over.Concurrency = n
		case "DRY_RUN":
			b, err := strconv.ParseBool(strings.TrimSpace(val))
			if err != nil {
				return over, fmt.Errorf("%sDRY_RUN: %w", EnvPrefix, err)
			}
			over.DryRun = b
		case "LOG_LEVEL":
			over.LogLevel = strings.TrimSpace(val)
		}
	}
	return over, nil
}

// Load layers Defaults, the JSON file at path (skipped when path is empty)
// and the environment.
func Load(path string, environ []string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		file, err := LoadJSON(path, nil)
		if err != nil {
			return cfg, err
		}
		cfg = Merge(cfg, file)
	}
	env, err := EnvOverlay(environ)
	if err != nil {
		return cfg, err
	}
	return Merge(cfg, env), nil
}

// Validate reports every invalid setting. Root is not checked because not
// every command needs it.
func (c Config) Validate() error {
	var errs []error
	if _, err := regexp.Compile(c.Pattern); err != nil {
		errs = append(errs, fmt.Errorf("pattern: %w", err))
	}
	if _, err := batch.ParseOrdering(c.Ordering); err != nil {
		errs = append(errs, fmt.Errorf("ordering: %w", err))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}
	if _, err := logx.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	if err := c.Binarize.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("binarize: %w", err))
	}
	if err := c.Resize.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("resize: %w", err))
	}
	if err := c.Overlay.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("overlay: %w", err))
	}
	return errors.Join(errs...)
}

// RunnerOptions converts the batch settings for batch.NewRunner.
func (c Config) RunnerOptions() batch.Options {
	return batch.Options{
		Root:        c.Root,
		Pattern:     c.Pattern,
		Ordering:    batch.Ordering(c.Ordering),
		Concurrency: c.Concurrency,
		DryRun:      c.DryRun,
		Policy:      c.Policy,
	}
}
