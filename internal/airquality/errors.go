package airquality

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

var (
	// ErrSourceUnavailable means the dataset location could not be fetched or opened.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSchema means a required column is absent from the header.
	ErrSchema = errors.New("schema error")
	// ErrInsufficientData means a statistic has fewer than two usable observations.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrUnknownField means a field name is not a numeric column of the schema.
	ErrUnknownField = errors.New("unknown field")
)

// SourceError reports a fetch/open failure. It matches ErrSourceUnavailable
// with errors.Is and unwraps to the underlying cause.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }

// SchemaError lists every required column missing from a source header.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: missing required column(s) %s",
		e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func unknownField(f Field) error {
	return errors.Wrapf(ErrUnknownField, "%q", string(f))
}
