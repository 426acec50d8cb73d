package trim

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2ufkpfb9daxnik/handwritten-formula/internal/raster"
)

func createGrayImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 256)
	}
	return img
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := raster.SaveImage(filepath.Join(dir, name), createGrayImage(40, 30)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func imageSize(t *testing.T, path string) image.Point {
	t.Helper()
	img, err := raster.LoadImage(path)
	if err != nil {
		t.Fatalf("failed to load %s: %v", path, err)
	}
	return img.Bounds().Size()
}

func TestSession_StateMachine(t *testing.T) {
	s := NewSession(t.TempDir(), []string{"formula_images_1.png"}, nil)
	if s.State() != Idle {
		t.Fatalf("initial state: got %v", s.State())
	}

	s.Drag(10, 10)
	s.PointerUp(10, 10)
	if s.State() != Idle {
		t.Errorf("drag and release without press must stay idle, got %v", s.State())
	}

	s.PointerDown(10, 10)
	if s.State() != Selecting {
		t.Errorf("after press: got %v", s.State())
	}
	s.Drag(12, 30)
	s.PointerUp(12, 30)
	if s.State() != Idle {
		t.Errorf("4px wide selection should be dropped, got %v", s.State())
	}
	if _, ok := s.Selection(); ok {
		t.Error("no selection expected in idle state")
	}

	s.PointerDown(30, 25)
	s.Drag(20, 20)
	s.PointerUp(5, 5)
	if s.State() != Selected {
		t.Fatalf("after valid gesture: got %v", s.State())
	}
	sel, ok := s.Selection()
	if !ok || sel != image.Rect(5, 5, 30, 25) {
		t.Errorf("selection: got %v, want normalized (5,5)-(30,25)", sel)
	}

	s.PointerDown(0, 0)
	if s.State() != Selecting {
		t.Errorf("new press should restart selection, got %v", s.State())
	}
}

func TestSession_MinSpanBoundary(t *testing.T) {
	s := NewSession(t.TempDir(), []string{"a.png"}, nil)
	s.PointerDown(0, 0)
	s.PointerUp(5, 5)
	if s.State() != Selected {
		t.Errorf("5px span is accepted, got %v", s.State())
	}

	s.SetMinSpan(10)
	s.PointerDown(0, 0)
	s.PointerUp(9, 20)
	if s.State() != Idle {
		t.Errorf("9px span below custom minimum, got %v", s.State())
	}
}

func TestSession_SaveRequiresSelection(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "formula_images_1.png")
	s := NewSession(dir, []string{"formula_images_1.png"}, nil)

	if _, err := s.Save(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if name, ok := s.Current(); !ok || name != "formula_images_1.png" {
		t.Error("failed save must not advance")
	}
}

func TestSession_SaveCropsAndAdvances(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "formula_images_1.png", "formula_images_2.png")
	s := NewSession(dir, []string{"formula_images_1.png", "formula_images_2.png"}, nil)

	s.PointerDown(5, 5)
	s.Drag(25, 20)
	s.PointerUp(25, 20)
	size, err := s.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if size != image.Pt(20, 15) {
		t.Errorf("size: got %v, want 20x15", size)
	}
	if got := imageSize(t, filepath.Join(dir, "formula_images_1.png")); got != image.Pt(20, 15) {
		t.Errorf("file size: got %v", got)
	}
	img, _ := raster.LoadImage(filepath.Join(dir, "formula_images_1.png"))
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("cropped grayscale image saved as %T", img)
	}

	if s.State() != Idle {
		t.Errorf("state after save: got %v", s.State())
	}
	if pos, total := s.Position(); pos != 2 || total != 2 {
		t.Errorf("position: got %d/%d", pos, total)
	}
}

func TestSession_SaveClipsToBounds(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "formula_images_1.png")
	s := NewSession(dir, []string{"formula_images_1.png"}, nil)

	s.PointerDown(30, 20)
	s.PointerUp(60, 50)
	size, err := s.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if size != image.Pt(10, 10) {
		t.Errorf("size: got %v, want 10x10", size)
	}
}

func TestSession_SkipAndNext(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "formula_images_1.png", "formula_images_2.png")
	s := NewSession(dir, []string{"formula_images_1.png", "formula_images_2.png"}, nil)

	if err := s.Skip(); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	s.PointerDown(0, 0)
	s.PointerUp(20, 20)
	if err := s.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !s.Done() {
		t.Error("queue should be exhausted")
	}
	if got := imageSize(t, filepath.Join(dir, "formula_images_2.png")); got != image.Pt(40, 30) {
		t.Errorf("Next must not write, size %v", got)
	}

	if err := s.Skip(); !errors.Is(err, ErrDone) {
		t.Errorf("Skip after done: got %v", err)
	}
	if err := s.Next(); !errors.Is(err, ErrDone) {
		t.Errorf("Next after done: got %v", err)
	}
	if _, err := s.Save(); !errors.Is(err, ErrDone) {
		t.Errorf("Save after done: got %v", err)
	}
}

func TestCrop_OutsideBounds(t *testing.T) {
	if _, err := Crop(createGrayImage(10, 10), image.Rect(20, 20, 30, 30)); err == nil {
		t.Error("expected error for region outside the image")
	}
}

func TestParseTargets(t *testing.T) {
	input := strings.Join([]string{
		"# retake these",
		"formula_images_3.png",
		"  - formula_images_12.png 4 5 40 30",
		"",
		"notes without a file",
		"formula_images_7.png: too dark",
	}, "\n")

	targets, err := ParseTargets(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTargets failed: %v", err)
	}
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	if targets[0].Name != "formula_images_3.png" || targets[0].Rect != nil {
		t.Errorf("first target: got %+v", targets[0])
	}
	if targets[1].Name != "formula_images_12.png" || targets[1].Rect == nil || *targets[1].Rect != image.Rect(4, 5, 40, 30) {
		t.Errorf("second target: got %+v", targets[1])
	}
	if targets[2].Name != "formula_images_7.png" || targets[2].Rect != nil {
		t.Errorf("note should not produce a rectangle: got %+v", targets[2])
	}
}

func TestParseTargets_InvalidCoordinates(t *testing.T) {
	for _, line := range []string{
		"formula_images_1.png 1 2 x 4",
		"formula_images_1.png 1 2 3",
	} {
		_, err := ParseTargets(strings.NewReader("\n" + line))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("%q: expected line-numbered error, got %v", line, err)
		}
	}
}

func TestReplay(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "formula_images_1.png", "formula_images_2.png", "formula_images_3.png")

	r1 := image.Rect(2, 2, 22, 12)
	r3 := image.Rect(0, 0, 3, 3)
	targets := []Target{
		{Name: "formula_images_1.png", Rect: &r1},
		{Name: "formula_images_2.png"},
		{Name: "formula_images_3.png", Rect: &r3},
		{Name: "formula_images_9.png"},
	}

	res, err := Replay(context.Background(), dir, targets, nil)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if res.Total != 3 || res.Saved != 1 || res.Skipped != 2 || len(res.Errors) != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
	if got := res.Footer(); got != "1/3 files trimmed" {
		t.Errorf("footer: got %q", got)
	}
	if got := imageSize(t, filepath.Join(dir, "formula_images_1.png")); got != image.Pt(20, 10) {
		t.Errorf("trimmed size: got %v", got)
	}
	if got := imageSize(t, filepath.Join(dir, "formula_images_3.png")); got != image.Pt(40, 30) {
		t.Errorf("too small a selection must not write, got %v", got)
	}
}
