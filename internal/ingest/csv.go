// Package ingest reads FAOSTAT-style CSV exports into series rows.
//
// Item files hold one observation per line with element code, area code, year
// and value columns. Header names are matched case-insensitively and both the
// snake_case form ("element_code") and the FAOSTAT export form ("Element Code")
// are accepted. Other columns are ignored.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fairdiet/fairdiet/internal/logging"
	"github.com/fairdiet/fairdiet/internal/series"
)

// Column keys after normalization.
const (
	colElement = "element_code"
	colArea    = "area_code"
	colYear    = "year"
	colValue   = "value"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// ParseRows reads CSV rows from r. When requireElement is false the element
// column is ignored even if present and every row gets ElementCode 0
// (population files, which FAOSTAT exports with element 511).
func ParseRows(ctx context.Context, r io.Reader, requireElement bool) ([]series.Row, error) {
	log := logging.FromContext(ctx)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		cols[normalizeHeader(h)] = i
	}
	required := []string{colArea, colYear, colValue}
	if requireElement {
		required = append(required, colElement)
	}
	for _, key := range required {
		if _, ok := cols[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, key)
		}
	}
	elementCol, hasElement := cols[colElement]
	hasElement = hasElement && requireElement

	var rows []series.Row
	line := 1
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			return nil, fmt.Errorf("line %d: %w", line, readErr)
		}
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		var row series.Row
		if row.AreaCode, err = intField(record, cols[colArea]); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colArea, err)
		}
		if row.Year, err = intField(record, cols[colYear]); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colYear, err)
		}
		if hasElement {
			if row.ElementCode, err = intField(record, elementCol); err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, colElement, err)
			}
		}
		raw := strings.TrimSpace(record[cols[colValue]])
		if raw == "" {
			// FAOSTAT leaves the value empty for missing observations. The store
			// reports the gap if the year is needed.
			continue
		}
		if row.Value, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, colValue, err)
		}
		rows = append(rows, row)
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "ingest").
		Str("operation", "parse_rows").
		Int("row_count", len(rows)).
		Msg("CSV parsed")

	return rows, nil
}

func intField(record []string, idx int) (int, error) {
	if idx >= len(record) {
		return 0, errors.New("field missing")
	}
	raw := strings.TrimSpace(record[idx])
	v, err := strconv.Atoi(raw)
	if err != nil {
		// Some exports write codes as floats ("826.0").
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, err
		}
		return int(f), nil
	}
	return v, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}
