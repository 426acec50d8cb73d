package batch

import (
	"fmt"
	"io"
	"log/slog"
)

// FileResult is the outcome for one file.
type FileResult struct {
	Name      string `json:"name"`
	Filled    int    `json:"filled"`
	Protected int    `json:"protected"`
	Changed   bool   `json:"changed"`
	Empty     bool   `json:"empty,omitempty"`

	// Err is set when the file failed; Error carries its message.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`
}

func (r FileResult) fail(kind Kind, err error, log *slog.Logger) FileResult {
	r.Err = &FileError{Name: r.Name, Kind: kind, Err: err}
	r.Error = err.Error()
	log.Error("file failed", "file", r.Name, "stage", string(kind), "error", err)
	return r
}

// Failed reports whether processing the file failed.
func (r FileResult) Failed() bool { return r.Err != nil }

// Line formats the report line for the file.
func (r FileResult) Line() string {
	switch {
	case r.Failed():
		return fmt.Sprintf("%s: error: %s", r.Name, r.Error)
	case r.Changed:
		return fmt.Sprintf("%s: filled %d, protected %d", r.Name, r.Filled, r.Protected)
	default:
		return fmt.Sprintf("%s: no change", r.Name)
	}
}

// Summary aggregates a batch run.
type Summary struct {
	// Total is the number of discovered files, including any not started
	// because the run was cancelled.
	Total     int          `json:"total"`
	Changed   int          `json:"changed"`
	Unchanged int          `json:"unchanged"`
	Failed    int          `json:"failed"`
	Files     []FileResult `json:"files"`
}

func newSummary(total int, files []FileResult) *Summary {
	s := &Summary{Total: total, Files: files}
	for _, f := range files {
		switch {
		case f.Failed():
			s.Failed++
		case f.Changed:
			s.Changed++
		default:
			s.Unchanged++
		}
	}
	return s
}

// Errors returns the per-file errors in report order.
func (s *Summary) Errors() []error {
	var errs []error
	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Footer is the closing line: the number of changed files over the total,
// followed by the failure count when there were failures.
func (s *Summary) Footer() string {
	line := fmt.Sprintf("%d/%d files processed", s.Changed, s.Total)
	if s.Failed > 0 {
		line += fmt.Sprintf(" (%d failed)", s.Failed)
	}
	return line
}

// WriteReport writes one line per file followed by the footer.
func (s *Summary) WriteReport(w io.Writer) error {
	for _, f := range s.Files {
		if _, err := fmt.Fprintln(w, f.Line()); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if _, err := fmt.Fprintln(w, s.Footer()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
