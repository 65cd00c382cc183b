package pipeline

import (
	"testing"

	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func day(d int) domain.DateKey { return domain.DateKey{Year: 2023, Month: 6, Day: d} }

func TestSummaryCache_BasicGetPut(t *testing.T) {
	c := newSummaryCache(3)

	c.put(day(1), 1, domain.Summary{Count: 1})
	c.put(day(2), 1, domain.Summary{Count: 2})

	s, ok := c.get(day(1), 1)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Count)

	_, ok = c.get(day(9), 1)
	assert.False(t, ok)
}

func TestSummaryCache_VersionMismatchIsMiss(t *testing.T) {
	c := newSummaryCache(3)
	c.put(day(1), 1, domain.Summary{Count: 1})

	_, ok := c.get(day(1), 2)
	assert.False(t, ok)
	assert.Equal(t, 0, c.size(), "stale entry should be dropped")
}

func TestSummaryCache_Eviction(t *testing.T) {
	c := newSummaryCache(2)

	c.put(day(1), 1, domain.Summary{Count: 1})
	c.put(day(2), 1, domain.Summary{Count: 2})
	c.put(day(3), 1, domain.Summary{Count: 3}) // evicts day 1

	_, ok := c.get(day(1), 1)
	assert.False(t, ok, "day 1 should have been evicted")

	_, ok = c.get(day(2), 1)
	assert.True(t, ok)
	_, ok = c.get(day(3), 1)
	assert.True(t, ok)
}

func TestSummaryCache_AccessPromotesEntry(t *testing.T) {
	c := newSummaryCache(2)

	c.put(day(1), 1, domain.Summary{})
	c.put(day(2), 1, domain.Summary{})
	c.get(day(1), 1)
	c.put(day(3), 1, domain.Summary{})

	_, ok := c.get(day(1), 1)
	assert.True(t, ok, "day 1 was accessed recently, should not be evicted")
	_, ok = c.get(day(2), 1)
	assert.False(t, ok, "day 2 should have been evicted")
}

func TestSummaryCache_UpdateExisting(t *testing.T) {
	c := newSummaryCache(2)

	c.put(day(1), 1, domain.Summary{Count: 1})
	c.put(day(1), 2, domain.Summary{Count: 5})

	s, ok := c.get(day(1), 2)
	assert.True(t, ok)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 1, c.size())
}
