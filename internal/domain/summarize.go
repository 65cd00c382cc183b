package domain

import (
	"math"
	"slices"
)

// Point is one (hour, density) pair of a day's curve.
type Point struct {
	Hour    int
	Density float64
}

// Summary is the aggregate view of one day's readings.
type Summary struct {
	Date   DateKey
	NoData bool
	Count  int

	// Series is ordered by hour ascending.
	Series []Point

	Max     float64
	MaxHour int
	Min     float64
	MinHour int
	Mean    float64
}

// SortByHour returns a copy of readings stably sorted by hour ascending.
func SortByHour(readings []Reading) []Reading {
	sorted := slices.Clone(readings)
	slices.SortStableFunc(sorted, func(a, b Reading) int {
		return a.Hour - b.Hour
	})
	return sorted
}

// Summarize computes the day summary for readings already filtered to one
// date. It does not validate the date. Ties for max and min resolve to the
// earliest hour. NaN densities appear in Series but are skipped by the
// statistics; if all are NaN the statistics are NaN and hours are -1.
func Summarize(readings []Reading) Summary {
	if len(readings) == 0 {
		return Summary{NoData: true, Series: []Point{}}
	}

	sorted := SortByHour(readings)
	s := Summary{
		Date:    sorted[0].Date(),
		Count:   len(sorted),
		Series:  make([]Point, len(sorted)),
		Max:     math.NaN(),
		MaxHour: -1,
		Min:     math.NaN(),
		MinHour: -1,
		Mean:    math.NaN(),
	}

	var sum float64
	var n int
	for i, r := range sorted {
		s.Series[i] = Point{Hour: r.Hour, Density: r.Density}
		if math.IsNaN(r.Density) {
			continue
		}
		if n == 0 || r.Density > s.Max {
			s.Max, s.MaxHour = r.Density, r.Hour
		}
		if n == 0 || r.Density < s.Min {
			s.Min, s.MinHour = r.Density, r.Hour
		}
		sum += r.Density
		n++
	}
	if n > 0 {
		s.Mean = sum / float64(n)
	}
	return s
}
