package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(hour int, density float64) Reading {
	return Reading{Year: 2023, Month: 6, Day: 15, Hour: hour, Density: density}
}

func TestSummarize_NoData(t *testing.T) {
	s := Summarize(nil)

	assert.True(t, s.NoData)
	assert.Zero(t, s.Count)
	assert.Empty(t, s.Series)
}

func TestSummarize_SortsByHour(t *testing.T) {
	s := Summarize([]Reading{reading(3, 5), reading(0, 10), reading(2, 30), reading(1, 30)})

	want := []Point{{0, 10}, {1, 30}, {2, 30}, {3, 5}}
	if diff := cmp.Diff(want, s.Series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, s.NoData)
	assert.Equal(t, DateKey{2023, 6, 15}, s.Date)
}

func TestSummarize_TieBreakEarliestHour(t *testing.T) {
	s := Summarize([]Reading{reading(0, 10), reading(1, 30), reading(2, 30), reading(3, 5)})

	assert.Equal(t, 30.0, s.Max)
	assert.Equal(t, 1, s.MaxHour)
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, 3, s.MinHour)
	assert.InDelta(t, 18.75, s.Mean, 1e-9)
}

func TestSummarize_MinTieBreak(t *testing.T) {
	s := Summarize([]Reading{reading(5, 2), reading(4, 2), reading(6, 9)})

	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 4, s.MinHour)
}

func TestSummarize_MeanCountsDuplicates(t *testing.T) {
	s := Summarize([]Reading{reading(5, 10), reading(5, 20), reading(6, 30)})

	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 20.0, s.Mean, 1e-9)
	assert.Equal(t, []Point{{5, 10}, {5, 20}, {6, 30}}, s.Series)
}

func TestSummarize_KeepsFullPrecision(t *testing.T) {
	s := Summarize([]Reading{reading(0, 1.0 / 3.0), reading(1, 2.0 / 3.0)})

	assert.InDelta(t, 0.5, s.Mean, 1e-12)
	assert.Equal(t, 2.0/3.0, s.Max)
	assert.Equal(t, 1.0/3.0, s.Min)
}

func TestSummarize_SkipsNaN(t *testing.T) {
	s := Summarize([]Reading{reading(0, math.NaN()), reading(1, 4), reading(2, 8)})

	assert.Equal(t, 3, s.Count)
	assert.Len(t, s.Series, 3)
	assert.Equal(t, 8.0, s.Max)
	assert.Equal(t, 2, s.MaxHour)
	assert.Equal(t, 4.0, s.Min)
	assert.Equal(t, 1, s.MinHour)
	assert.InDelta(t, 6.0, s.Mean, 1e-9)
}

func TestSummarize_AllNaN(t *testing.T) {
	s := Summarize([]Reading{reading(0, math.NaN())})

	assert.False(t, s.NoData)
	assert.True(t, math.IsNaN(s.Max))
	assert.True(t, math.IsNaN(s.Mean))
	assert.Equal(t, -1, s.MaxHour)
	assert.Equal(t, -1, s.MinHour)
}

func TestSortByHour_DoesNotMutateInput(t *testing.T) {
	in := []Reading{reading(2, 1), reading(1, 1)}
	out := SortByHour(in)

	assert.Equal(t, 2, in[0].Hour)
	assert.Equal(t, 1, out[0].Hour)
}

func TestNewIngestBatch_UsesClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	b := NewIngestBatch("upload.csv", []Reading{reading(0, 1)})

	require.Len(t, b.Readings, 1)
	assert.Equal(t, "upload.csv", b.Source)
	assert.Equal(t, fake.Now(), b.IngestedAt)
}
