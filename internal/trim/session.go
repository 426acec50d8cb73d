package trim

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/logx"
	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

// DefaultMinSpan is the smallest selection, in pixels along each axis, that
// counts as a rectangle rather than a click.
const DefaultMinSpan = 5

var (
	// ErrNoSelection is returned by Save when no rectangle is selected.
	ErrNoSelection = errors.New("no selection")

	// ErrDone is returned by actions once the queue is exhausted.
	ErrDone = errors.New("all images processed")
)

// State is the selection state for the current image.
type State int

const (
	Idle State = iota
	Selecting
	Selected
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Selected:
		return "selected"
	}
	return "idle"
}

// Session walks a queue of images under a root directory.
type Session struct {
	root    string
	names   []string
	index   int
	minSpan int
	log     *slog.Logger

	state  State
	anchor image.Point
	cursor image.Point
}

// NewSession queues names, relative to root, in the given order.
func NewSession(root string, names []string, log *slog.Logger) *Session {
	return &Session{
		root:    root,
		names:   append([]string(nil), names...),
		minSpan: DefaultMinSpan,
		log:     logx.OrNop(log),
	}
}

// SetMinSpan changes the smallest accepted selection.
func (s *Session) SetMinSpan(n int) { s.minSpan = n }

func (s *Session) State() State { return s.state }

// Done reports whether every image has been handled.
func (s *Session) Done() bool { return s.index >= len(s.names) }

// Position returns the 1-based index of the current image and the queue
// length.
func (s *Session) Position() (int, int) { return s.index + 1, len(s.names) }

// Current returns the name of the image being edited.
func (s *Session) Current() (string, bool) {
	if s.Done() {
		return "", false
	}
	return s.names[s.index], true
}

// Selection returns the selected rectangle, normalized so Min is the top-left
// corner. ok is false unless the state is Selected.
func (s *Session) Selection() (r image.Rectangle, ok bool) {
	if s.state != Selected {
		return image.Rectangle{}, false
	}
	return image.Rectangle{Min: s.anchor, Max: s.cursor}.Canon(), true
}

// PointerDown starts a new selection at (x, y), discarding any previous one.
func (s *Session) PointerDown(x, y int) {
	if s.Done() {
		return
	}
	s.anchor = image.Pt(x, y)
	s.cursor = s.anchor
	s.state = Selecting
}

// Drag moves the free corner of the selection. It is ignored unless a
// selection is in progress.
func (s *Session) Drag(x, y int) {
	if s.state == Selecting {
		s.cursor = image.Pt(x, y)
	}
}

// PointerUp finishes the selection at (x, y). A selection narrower than the
// minimum span on either axis is dropped.
func (s *Session) PointerUp(x, y int) {
	if s.state != Selecting {
		return
	}
	s.cursor = image.Pt(x, y)
	r := image.Rectangle{Min: s.anchor, Max: s.cursor}.Canon()
	if r.Dx() < s.minSpan || r.Dy() < s.minSpan {
		s.state = Idle
		return
	}
	s.state = Selected
	s.log.Debug("selected", "file", s.names[s.index], "rect", r.String())
}

// Skip moves to the next image without writing.
func (s *Session) Skip() error {
	if s.Done() {
		return ErrDone
	}
	s.log.Info("skipped", "file", s.names[s.index])
	s.advance()
	return nil
}

// Next moves to the next image, discarding any selection.
func (s *Session) Next() error {
	if s.Done() {
		return ErrDone
	}
	if s.state == Selected {
		s.log.Info("selection discarded", "file", s.names[s.index])
	}
	s.advance()
	return nil
}

// Save crops the current image to the selection, overwrites it and moves to
// the next image. It returns the size of the saved image. The selection is
// clipped to the image bounds.
//
// Without a selection Save returns ErrNoSelection and stays on the image.
// When writing fails the session stays on the image with its selection.
func (s *Session) Save() (image.Point, error) {
	if s.Done() {
		return image.Point{}, ErrDone
	}
	sel, ok := s.Selection()
	if !ok {
		return image.Point{}, ErrNoSelection
	}

	name := s.names[s.index]
	path := filepath.Join(s.root, name)
	img, err := raster.LoadImage(path)
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to load %s: %w", name, err)
	}
	cropped, err := Crop(img, sel)
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to crop %s: %w", name, err)
	}
	if err := raster.SaveImage(path, cropped); err != nil {
		return image.Point{}, fmt.Errorf("failed to save %s: %w", name, err)
	}

	size := cropped.Bounds().Size()
	s.log.Info("saved", "file", name, "width", size.X, "height", size.Y)
	s.advance()
	return size, nil
}

func (s *Session) advance() {
	s.index++
	s.state = Idle
}

// Crop returns the part of img inside r, clipped to the image bounds and
// anchored at the origin. Grayscale images stay grayscale.
func Crop(img image.Image, r image.Rectangle) (image.Image, error) {
	r = r.Canon().Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, img.Bounds())
	}

	cropped := imaging.Crop(img, r)
	if _, ok := img.(*image.Gray); !ok {
		return cropped, nil
	}
	gray := image.NewGray(cropped.Bounds())
	draw.Draw(gray, gray.Bounds(), cropped, cropped.Bounds().Min, draw.Src)
	return gray, nil
}
