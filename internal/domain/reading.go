package domain

import (
	"fmt"
	"time"
)

// Reading is one hourly density observation in the canonical schema.
type Reading struct {
	Year    int
	Month   int
	Day     int
	Hour    int
	Density float64
}

// Date returns the calendar date the reading belongs to.
func (r Reading) Date() DateKey {
	return DateKey{Year: r.Year, Month: r.Month, Day: r.Day}
}

// DateKey identifies a calendar day.
type DateKey struct {
	Year  int
	Month int
	Day   int
}

func (k DateKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, k.Month, k.Day)
}

// RawRow is one tabular source row keyed by header name.
type RawRow map[string]string

// ColumnMap names the source columns that hold the timestamp and the density.
type ColumnMap struct {
	TimestampColumn string
	DensityColumn   string

	// TimestampAliases are tried in order when TimestampColumn is absent from
	// the header. Older exports used a different label for the same column.
	TimestampAliases []string

	// TimestampLayouts are Go time layouts tried in order. Empty means
	// DefaultTimestampLayouts.
	TimestampLayouts []string
}

// DefaultTimestampLayouts covers the timestamp formats seen in station exports.
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
}

// IngestBatch is a set of readings accepted by one ingestion call.
type IngestBatch struct {
	Source     string
	IngestedAt time.Time
	Readings   []Reading
}

// NewIngestBatch stamps a batch with the current time.
func NewIngestBatch(source string, readings []Reading) IngestBatch {
	return IngestBatch{
		Source:     source,
		IngestedAt: clock.Now().UTC(),
		Readings:   readings,
	}
}
