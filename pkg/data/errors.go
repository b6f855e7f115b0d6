package data

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumns = errors.New("data: missing required columns")
	ErrEmptyTable     = errors.New("data: table has no data rows")
	ErrMalformedValue = errors.New("data: malformed value")
)

// DataLoadError reports why an input table could not be used.
type DataLoadError struct {
	Path    string
	Missing []string // required columns absent from the header
	Row     int      // 1-based data row of a malformed cell, 0 otherwise
	Column  string
	Err     error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Path)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing columns [%s]", strings.Join(e.Missing, ", "))
		return b.String()
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d column %q", e.Row, e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataLoadError) Unwrap() error { return e.Err }
