package parse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when the stream holds no header row at all.
var ErrEmptyInput = errors.New("input contains no header row")

// MissingColumnsError reports required canonical columns absent from the header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", "))
}

// RowParseError reports a data row that could not be coerced.
// Row is the 1-based data row index, the header excluded. Column is empty
// when the row itself is malformed CSV.
type RowParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *RowParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %v", e.Row, e.Err)
	}
	return fmt.Sprintf("row %d, column %q: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowParseError) Unwrap() error {
	return e.Err
}
