package series

import (
	"fmt"
	"strings"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrDataLoad indicates missing or malformed source data. Stores cannot be
// built from partial data, so this error is fatal at startup.
var ErrDataLoad = constError("data load failed")

// DataLoadError describes which series could not be built.
type DataLoadError struct {
	Region string
	Item   string // empty for population
	Series string // basis name or "population"
	Year   int    // 0 when not year-specific
	Reason string
	Err    error
}

func (e *DataLoadError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(ErrDataLoad))
	parts := make([]string, 0, 4)
	if e.Region != "" {
		parts = append(parts, "region "+e.Region)
	}
	if e.Item != "" {
		parts = append(parts, "item "+e.Item)
	}
	if e.Series != "" {
		parts = append(parts, "series "+e.Series)
	}
	if e.Year != 0 {
		parts = append(parts, fmt.Sprintf("year %d", e.Year))
	}
	if len(parts) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if e.Reason != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Reason)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Is lets errors.Is match ErrDataLoad.
func (e *DataLoadError) Is(target error) bool {
	return target == ErrDataLoad
}

// Unwrap returns the underlying cause.
func (e *DataLoadError) Unwrap() error {
	return e.Err
}
