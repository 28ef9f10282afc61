package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for individual constraint violations.
var (
	ErrRequired  = errors.New("is required")
	ErrType      = errors.New("has wrong type")
	ErrEmpty     = errors.New("must not be empty")
	ErrRange     = errors.New("is out of range")
	ErrFraction  = errors.New("must be a whole number")
	ErrEnum      = errors.New("is not an allowed value")
	ErrURL       = errors.New("must be an absolute URL")
	ErrPattern   = errors.New("has invalid format")
	ErrDuplicate = errors.New("is duplicated")
)

// FieldError is a single violated constraint on one field.
type FieldError struct {
	Path       string `json:"path"`       // e.g. "provider.url", "job_roles_titles[1]"
	Constraint string `json:"constraint"` // e.g. "number in [1, 5]"
	Value      any    `json:"value,omitempty"`
	Err        error  `json:"-"`
}

func (e FieldError) Error() string {
	if e.Constraint == "" {
		return fmt.Sprintf("%s %s", e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s (expected %s)", e.Path, e.Err, e.Constraint)
}

func (e FieldError) Unwrap() error { return e.Err }

// ValidationError lists every violation found in one candidate record.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Error()
	}
	return fmt.Sprintf("validation failed: %d violation(s): %s", len(e.Fields), strings.Join(parts, "; "))
}

// Unwrap exposes every field error so errors.Is matches any sentinel.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Fields))
	for i, f := range e.Fields {
		errs[i] = f
	}
	return errs
}

// Has reports whether the given path has at least one violation.
func (e *ValidationError) Has(path string) bool {
	for _, f := range e.Fields {
		if f.Path == path {
			return true
		}
	}
	return false
}

// CollectionError reports the first invalid element of a collection.
type CollectionError struct {
	Index int
	Err   *ValidationError
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// DuplicateError reports records sharing a value that must be unique.
type DuplicateError struct {
	Field   string
	Value   string
	Indexes []int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q %s at records %v", e.Field, e.Value, ErrDuplicate, e.Indexes)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicate }
