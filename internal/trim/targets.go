package trim

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
)

// Target is one entry of a targets file: an image and, optionally, the
// rectangle to keep.
type Target struct {
	Name string
	// Rect is nil when the line names the image only.
	Rect *image.Rectangle
}

var targetName = regexp.MustCompile(`formula_images_\d+\.png`)

// ParseTargets reads a targets file. Each line naming a formula image
// selects it. When the name is followed by a number, exactly four integers
// "x1 y1 x2 y2" must follow and give the crop rectangle in image pixels; any
// other trailing text is a note. Lines without a name and lines starting with
// '#' are ignored.
func ParseTargets(r io.Reader) ([]Target, error) {
	var targets []Target
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		loc := targetName.FindStringIndex(line)
		if loc == nil {
			continue
		}

		t := Target{Name: line[loc[0]:loc[1]]}
		fields := strings.Fields(line[loc[1]:])
		if len(fields) > 0 && isInt(fields[0]) {
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: want 4 coordinates after %s, got %d", lineNo, t.Name, len(fields))
			}
			var v [4]int
			for i, f := range fields {
				n, err := strconv.Atoi(f)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate %q", lineNo, f)
				}
				v[i] = n
			}
			rect := image.Rect(v[0], v[1], v[2], v[3])
			t.Rect = &rect
		}
		targets = append(targets, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	return targets, nil
}

func isInt(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// LoadTargets parses the targets file at path.
func LoadTargets(path string) ([]Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets: %w", err)
	}
	defer f.Close()
	return ParseTargets(f)
}

// Result summarizes a replay.
type Result struct {
	Total   int     `json:"total"`
	Saved   int     `json:"saved"`
	Skipped int     `json:"skipped"`
	Errors  []error `json:"-"`
}

// Footer is the closing report line.
func (r *Result) Footer() string {
	line := fmt.Sprintf("%d/%d files trimmed", r.Saved, r.Total)
	if n := len(r.Errors); n > 0 {
		line += fmt.Sprintf(" (%d failed)", n)
	}
	return line
}

// Replay trims the targets that exist under root. A target with a rectangle
// is selected with a pointer gesture from one corner to the other and saved;
// one without is skipped. A selection smaller than the minimum span is
// discarded and the image left alone.
func Replay(ctx context.Context, root string, targets []Target, log *slog.Logger) (*Result, error) {
	log = logx.OrNop(log)

	var (
		names []string
		rects []*image.Rectangle
	)
	for _, t := range targets {
		if _, err := os.Stat(filepath.Join(root, t.Name)); err != nil {
			log.Warn("target not found", "file", t.Name)
			continue
		}
		names = append(names, t.Name)
		rects = append(rects, t.Rect)
	}

	s := NewSession(root, names, log)
	res := &Result{Total: len(names)}
	for i := 0; !s.Done(); i++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("trim interrupted: %w", err)
		}
		rect := rects[i]
		if rect == nil {
			res.Skipped++
			if err := s.Skip(); err != nil {
				return res, err
			}
			continue
		}

		s.PointerDown(rect.Min.X, rect.Min.Y)
		s.Drag(rect.Max.X, rect.Max.Y)
		s.PointerUp(rect.Max.X, rect.Max.Y)

		_, err := s.Save()
		switch {
		case err == nil:
			res.Saved++
			continue
		case errors.Is(err, ErrNoSelection):
			res.Skipped++
		default:
			res.Errors = append(res.Errors, err)
			log.Error("file failed", "file", names[i], "error", err)
		}
		if err := s.Next(); err != nil {
			return res, err
		}
	}
	return res, nil
}
