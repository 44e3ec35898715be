package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job or artifact does not exist
var ErrNotFound = errors.New("not found")

// InputError is a client mistake detected before any network attempt
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewInputError creates an InputError
func NewInputError(field, message string) *InputError {
	return &InputError{Field: field, Message: message}
}

// ExtractionError is a classified failure of the extraction engine
type ExtractionError struct {
	Fatal  bool
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	kind := "transient"
	if e.Fatal {
		kind = "fatal"
	}
	if e.Detail == "" && e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s): %s", kind, e.Detail)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err carries a fatal extraction classification.
// Unclassified errors are transient.
func IsFatal(err error) bool {
	var extErr *ExtractionError
	return errors.As(err, &extErr) && extErr.Fatal
}

// ExhaustedError is returned once every strategy of a job has failed
type ExhaustedError struct {
	Attempts int
	Egresses int
	Last     error
}

func (e *ExhaustedError) Error() string {
	last := "unknown error"
	if e.Last != nil {
		last = e.Last.Error()
	}
	return fmt.Sprintf("failed after trying %d strategies across %d egress paths: %s", e.Attempts, e.Egresses, last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}
