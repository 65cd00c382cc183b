package pipeline

import (
	"slices"

	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
)

// Querier answers day summaries from the store, caching results until the
// store changes.
type Querier struct {
	store   ReadingStore
	cache   *summaryCache
	metrics *observability.Metrics
}

// NewQuerier creates a Querier holding up to cacheSize day summaries.
func NewQuerier(store ReadingStore, cacheSize int, metrics *observability.Metrics) *Querier {
	return &Querier{
		store:   store,
		cache:   newSummaryCache(cacheSize),
		metrics: metrics,
	}
}

// Summarize returns the summary for one date. The date must already be
// validated. A date without readings yields Summary.NoData.
func (q *Querier) Summarize(year, month, day int) domain.Summary {
	key := domain.DateKey{Year: year, Month: month, Day: day}
	// Read the version before querying so a concurrent append can only make
	// the cached entry stale, never newer than its version.
	version := q.store.Version()

	if s, ok := q.cache.get(key, version); ok {
		q.metrics.SummaryCache.WithLabelValues("hit").Inc()
		return cloneSummary(s)
	}
	q.metrics.SummaryCache.WithLabelValues("miss").Inc()

	s := domain.Summarize(q.store.Query(year, month, day))
	s.Date = key
	q.cache.put(key, version, s)
	return cloneSummary(s)
}

func cloneSummary(s domain.Summary) domain.Summary {
	s.Series = slices.Clone(s.Series)
	return s
}
