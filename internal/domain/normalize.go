package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// nanValues are density cells treated as missing rather than malformed.
var nanValues = map[string]bool{"": true, "NA": true, "NaN": true, "nan": true, "<nil>": true}

// Normalize projects raw rows onto the canonical Reading schema.
// It fails the whole call with ErrMalformedInput on the first bad row; no
// partial output is returned.
func Normalize(rows []RawRow, cm ColumnMap) ([]Reading, error) {
	if cm.DensityColumn == "" {
		return nil, fmt.Errorf("%w: density column not configured", ErrMalformedInput)
	}
	if len(rows) == 0 {
		return []Reading{}, nil
	}

	tsCol, err := resolveTimestampColumn(rows[0], cm)
	if err != nil {
		return nil, err
	}
	if _, ok := rows[0][cm.DensityColumn]; !ok {
		return nil, fmt.Errorf("%w: missing density column %q", ErrMalformedInput, cm.DensityColumn)
	}

	layouts := cm.TimestampLayouts
	if len(layouts) == 0 {
		layouts = DefaultTimestampLayouts
	}

	out := make([]Reading, 0, len(rows))
	for i, row := range rows {
		r, err := normalizeRow(row, tsCol, cm.DensityColumn, layouts)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func normalizeRow(row RawRow, tsCol, densityCol string, layouts []string) (Reading, error) {
	ts, err := parseTimestamp(row[tsCol], layouts)
	if err != nil {
		return Reading{}, err
	}
	density, err := parseDensity(row[densityCol])
	if err != nil {
		return Reading{}, err
	}

	r := Reading{
		Year:    ts.Year(),
		Month:   int(ts.Month()),
		Day:     ts.Day(),
		Hour:    ts.Hour(),
		Density: density,
	}
	if r.Year < 1000 || r.Year > 9999 || !IsValidDate(r.Year, r.Month, r.Day) {
		return Reading{}, fmt.Errorf("%w: invalid date %s", ErrMalformedInput, r.Date())
	}
	return r, nil
}

// resolveTimestampColumn picks the first configured timestamp header present in the row.
func resolveTimestampColumn(row RawRow, cm ColumnMap) (string, error) {
	candidates := append([]string{cm.TimestampColumn}, cm.TimestampAliases...)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := row[c]; ok {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: missing timestamp column %q", ErrMalformedInput, strings.Join(candidates, "|"))
}

// parseTimestamp tries each layout in order. Times are interpreted as wall
// clock values; no time zone conversion is applied.
func parseTimestamp(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedInput)
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q: %w", ErrMalformedInput, value, lastErr)
}

// parseDensity parses a density cell. Missing cells become NaN; negative
// sentinels pass through.
func parseDensity(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if nanValues[value] {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: density %q", ErrMalformedInput, value)
	}
	return v, nil
}
