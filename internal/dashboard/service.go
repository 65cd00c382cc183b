// Package dashboard is the query surface used by the presentation layer.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
	"github.com/couchcryptid/pm-density-service/internal/pipeline"
)

// Summarizer answers day summaries for validated dates.
type Summarizer interface {
	Summarize(year, month, day int) domain.Summary
}

// Ingester appends an uploaded source to the store.
type Ingester interface {
	Ingest(ctx context.Context, src pipeline.Source) ([]domain.Reading, error)
}

// UploadResult is what an upload against the currently viewed date returns.
type UploadResult struct {
	Added   []domain.Reading
	Summary domain.Summary
}

// Service gates queries on date validation and routes uploads through ingestion.
type Service struct {
	summarizer Summarizer
	ingester   Ingester
	columns    domain.ColumnMap
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService creates a Service. columns describes the layout of uploaded files.
func NewService(s Summarizer, i Ingester, columns domain.ColumnMap, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		summarizer: s,
		ingester:   i,
		columns:    columns,
		logger:     logger,
		metrics:    metrics,
	}
}

// Validate reports whether the date exists on the Gregorian calendar.
func (s *Service) Validate(year, month, day int) bool {
	return domain.IsValidDate(year, month, day)
}

// GetSummary returns the day summary, or domain.ErrInvalidDate. A day with no
// readings is not an error; the summary has NoData set.
func (s *Service) GetSummary(year, month, day int) (domain.Summary, error) {
	if !s.Validate(year, month, day) {
		s.metrics.Queries.WithLabelValues("invalid_date").Inc()
		return domain.Summary{}, fmt.Errorf("%w: %04d-%02d-%02d", domain.ErrInvalidDate, year, month, day)
	}

	summary := s.summarizer.Summarize(year, month, day)
	if summary.NoData {
		s.metrics.Queries.WithLabelValues("no_data").Inc()
		s.logger.Debug("no data for date", "date", summary.Date)
	} else {
		s.metrics.Queries.WithLabelValues("data").Inc()
	}
	return summary, nil
}

// Upload ingests one uploaded file and returns the readings it added.
func (s *Service) Upload(ctx context.Context, raw []byte, encoding string) ([]domain.Reading, error) {
	return s.ingester.Ingest(ctx, pipeline.Source{
		Name:     "upload",
		Data:     raw,
		Encoding: encoding,
		Columns:  s.columns,
	})
}

// UploadForDate ingests an upload made while viewing a date and returns the
// added readings together with the refreshed summary for that date.
func (s *Service) UploadForDate(ctx context.Context, year, month, day int, raw []byte, encoding string) (UploadResult, error) {
	if !s.Validate(year, month, day) {
		return UploadResult{}, fmt.Errorf("%w: %04d-%02d-%02d", domain.ErrInvalidDate, year, month, day)
	}
	added, err := s.Upload(ctx, raw, encoding)
	if err != nil {
		return UploadResult{}, err
	}
	summary, err := s.GetSummary(year, month, day)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Added: added, Summary: summary}, nil
}
