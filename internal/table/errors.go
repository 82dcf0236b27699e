package table

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a table could not be produced.
type ErrorKind string

const (
	KindSourceNotFound    ErrorKind = "source_not_found"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindParseFailure      ErrorKind = "parse_failure"
	KindEmptyTable        ErrorKind = "empty_table"
	KindTimeout           ErrorKind = "timeout"
)

// LoadError reports a failed table load.
type LoadError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("load %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// KindOf extracts the error kind from err. Errors that are not load errors
// are reported as parse failures; a nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindParseFailure
}

func newLoadError(kind ErrorKind, path string, err error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Err: err}
}
