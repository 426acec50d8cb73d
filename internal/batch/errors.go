package batch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrRead marks a file that could not be opened or decoded.
	ErrRead = errors.New("read failure")

	// ErrWrite marks a file whose result could not be saved.
	ErrWrite = errors.New("write failure")
)

// Kind is the coarse category of a per-file failure.
type Kind string

const (
	KindNone    Kind = ""
	KindRead    Kind = "read"
	KindWrite   Kind = "write"
	KindProcess Kind = "process"
	KindCancel  Kind = "cancel"
	KindUnknown Kind = "unknown"
)

// FileError records which file failed and at which stage.
type FileError struct {
	Name string
	Kind Kind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

// Unwrap exposes both the stage sentinel and the underlying cause.
func (e *FileError) Unwrap() []error {
	switch e.Kind {
	case KindRead:
		return []error{ErrRead, e.Err}
	case KindWrite:
		return []error{ErrWrite, e.Err}
	}
	return []error{e.Err}
}

// Classify maps err to a Kind using sentinels and error types only.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancel
	}
	if errors.Is(err, ErrRead) {
		return KindRead
	}
	if errors.Is(err, ErrWrite) {
		return KindWrite
	}
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}
