package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// RowParser decodes raw source bytes into tabular rows.
type RowParser interface {
	Parse(data []byte, encoding string) ([]domain.RawRow, error)
}

// ReadingStore is the in-memory time-series store.
type ReadingStore interface {
	BulkLoad(readings []domain.Reading)
	Append(readings []domain.Reading)
	Query(year, month, day int) []domain.Reading
	Len() int
	Dates() int
	Version() uint64
}

// Publisher forwards accepted batches downstream.
type Publisher interface {
	Publish(ctx context.Context, batch domain.IngestBatch) error
}

// Source is one tabular input: a yearly export or an upload.
type Source struct {
	Name     string
	Data     []byte
	Encoding string
	Columns  domain.ColumnMap
}

// normalizeSource runs a source through parsing and normalization. Nothing
// touches the store here, so a failure leaves it unmodified.
func normalizeSource(parser RowParser, src Source) ([]domain.Reading, error) {
	rows, err := parser.Parse(src.Data, src.Encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}
	readings, err := domain.Normalize(rows, src.Columns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}
	return readings, nil
}

// errorKind labels an ingestion error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrDecoding):
		return "decoding"
	case errors.Is(err, domain.ErrMalformedInput):
		return "malformed"
	default:
		return "other"
	}
}
