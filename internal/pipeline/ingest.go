package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
)

// Ingester appends newly supplied sources to the store.
type Ingester struct {
	parser    RowParser
	store     ReadingStore
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewIngester creates an Ingester. Pass a nil publisher to disable the sink.
func NewIngester(parser RowParser, store ReadingStore, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	return &Ingester{
		parser:    parser,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Ingest normalizes src and appends the result to the store, returning the
// readings that were added. Errors are returned unmodified apart from
// wrapping; the store is only touched after the whole source normalized.
func (i *Ingester) Ingest(ctx context.Context, src Source) ([]domain.Reading, error) {
	start := time.Now()

	readings, err := normalizeSource(i.parser, src)
	if err != nil {
		i.metrics.IngestErrors.WithLabelValues(errorKind(err)).Inc()
		i.logger.Warn("ingest rejected", "source", src.Name, "error", err)
		return nil, err
	}

	i.store.Append(readings)

	i.metrics.ReadingsIngested.Add(float64(len(readings)))
	i.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	i.metrics.StoreReadings.Set(float64(i.store.Len()))
	i.metrics.StoreDates.Set(float64(i.store.Dates()))
	i.logger.Info("ingest accepted", "source", src.Name, "readings", len(readings), "store_size", i.store.Len())

	i.publish(ctx, domain.NewIngestBatch(src.Name, readings))
	return readings, nil
}

// publish forwards the batch to the sink. Sink failures never undo the append.
func (i *Ingester) publish(ctx context.Context, batch domain.IngestBatch) {
	if i.publisher == nil || len(batch.Readings) == 0 {
		return
	}
	if err := i.publisher.Publish(ctx, batch); err != nil {
		i.metrics.SinkErrors.Inc()
		i.logger.Error("publish ingest batch failed", "source", batch.Source, "error", err)
		return
	}
	i.metrics.SinkPublished.Add(float64(len(batch.Readings)))
}
