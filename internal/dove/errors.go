package dove

import (
	"errors"
	"fmt"
)

// Failure kinds. A *FeedError wraps one of the first two; a RowError
// always matches ErrFieldType.
var (
	ErrMissingRequiredColumn = errors.New("missing required column")
	ErrFieldCountMismatch    = errors.New("wrong number of fields")
	ErrFieldType             = errors.New("bad field value")
)

var (
	errNotPositive = errors.New("must be positive")
	errEmpty       = errors.New("must not be empty")
	errNotFinite   = errors.New("must be a finite number")
)

// FeedError rejects a whole Dove feed. No towers from the feed may be used.
type FeedError struct {
	Kind   error
	Column string // missing column, for ErrMissingRequiredColumn
	Row    int    // 1-based data row, for ErrFieldCountMismatch
	Got    int
	Want   int
}

func (e *FeedError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrMissingRequiredColumn):
		return fmt.Sprintf("dove feed rejected: %v %q", e.Kind, e.Column)
	case errors.Is(e.Kind, ErrFieldCountMismatch):
		return fmt.Sprintf("dove feed rejected: %v at row %d (got %d, want %d)", e.Kind, e.Row, e.Got, e.Want)
	default:
		return fmt.Sprintf("dove feed rejected: %v", e.Kind)
	}
}

func (e *FeedError) Unwrap() error {
	return e.Kind
}

// RowError describes a single data row that was skipped.
type RowError struct {
	Err    error  `json:"-"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Row    int    `json:"row"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v in %s %q: %v", e.Row, ErrFieldType, e.Column, e.Value, e.Err)
}

func (e RowError) Unwrap() []error {
	return []error{ErrFieldType, e.Err}
}
