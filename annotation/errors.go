package annotation

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedDocument is returned when a file is not a readable annotation document.
	ErrMalformedDocument = errors.New("malformed annotation document")
	// ErrMissingField is returned when a required element is absent or empty.
	ErrMissingField = errors.New("missing field")
	// ErrInvalidCoordinate is returned when a coordinate is not a finite decimal number.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrDuplicateIdentifier is returned when two files map to the same identifier.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

// ParseError reports a failure to turn one annotation file into a bounding box.
type ParseError struct {
	// Path of the offending file.
	Path string
	// Field is the element that failed, empty when the whole document failed.
	Field string
	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// fieldError carries the failing field out of ReadDocument until a path is known. kind,
// when set, is the sentinel the error matches while err keeps the underlying cause.
type fieldError struct {
	field string
	kind  error
	err   error
}

func (e *fieldError) Error() string {
	msg := e.err.Error()
	if e.kind != nil {
		msg = fmt.Sprintf("%v: %s", e.kind, msg)
	}
	if e.field != "" {
		msg = e.field + ": " + msg
	}
	return msg
}

func (e *fieldError) Unwrap() error {
	return e.err
}

func (e *fieldError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// newParseError attaches path to err.
func newParseError(path string, err error) *ParseError {
	var fe *fieldError
	if !errors.As(err, &fe) {
		return &ParseError{Path: path, Err: err}
	}
	if fe.kind == nil {
		return &ParseError{Path: path, Field: fe.field, Err: fe.err}
	}
	return &ParseError{Path: path, Field: fe.field, Err: &fieldError{kind: fe.kind, err: fe.err}}
}
