package dataset

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline error taxonomy. Match with errors.Is.
var (
	ErrMalformedInput = errors.New("malformed input")
	ErrSchema         = errors.New("schema error")
	ErrEmptyDataset   = errors.New("dataset has no rows")
	ErrNotFound       = errors.New("dataset not found")
	ErrRender         = errors.New("report render failed")
)

// MalformedInputError reports a byte stream that cannot be decoded as delimited text.
type MalformedInputError struct {
	Line int
	Err  error
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed input at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

func (e *MalformedInputError) Is(target error) bool { return target == ErrMalformedInput }

// SchemaError reports a missing required column or an invalid value in one.
// Line is the 1-based physical line of the offending field, counting the
// header as line 1 (0 for header problems).
type SchemaError struct {
	Column string
	Line   int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("column %q, line %d: %s", e.Column, e.Line, e.Reason)
	}
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// NotFoundError reports an unknown or evicted dataset id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dataset %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// RenderError is an internal invariant violation while producing a report.
// It is not actionable by the caller and carries enough context to diagnose
// a data/code mismatch.
type RenderError struct {
	DatasetID string
	Stage     string
	Err       error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render dataset %q: %s: %v", e.DatasetID, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }
