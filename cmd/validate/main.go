// Command validate performs data integrity checks on a directory of yearly
// PM2.5 source files before they are served. It runs each file through the
// same decoding and normalization the service uses, then checks hour
// coverage and daily summary consistency.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data -encoding cp949
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/couchcryptid/pm-density-service/internal/adapter/csvsource"
	"github.com/couchcryptid/pm-density-service/internal/config"
	"github.com/couchcryptid/pm-density-service/internal/domain"
	"github.com/couchcryptid/pm-density-service/internal/observability"
	"github.com/couchcryptid/pm-density-service/internal/pipeline"
	"github.com/couchcryptid/pm-density-service/internal/store"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fileResult holds the normalized readings of one source file.
type fileResult struct {
	name     string
	readings []domain.Reading
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	dataDir := flag.String("data-dir", cfg.DataDir, "directory containing yearly source CSV files")
	glob := flag.String("glob", cfg.DataGlob, "file name pattern within -data-dir")
	enc := flag.String("encoding", cfg.SourceEncoding, "source text encoding")
	flag.Parse()

	columns := domain.ColumnMap{
		TimestampColumn:  cfg.TimestampColumn,
		TimestampAliases: cfg.TimestampAliases,
		DensityColumn:    cfg.DensityColumn,
	}

	if code := run(*dataDir, *glob, *enc, columns); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, glob, enc string, columns domain.ColumnMap) int {
	fmt.Println("=== PM2.5 Source Integrity Validation ===")
	fmt.Println()

	files, err := csvsource.LoadDir(dataDir, glob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load source files: %v\n", err)
		return 1
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no files match %q in %s\n", glob, dataDir)
		return 1
	}

	results, normPhase := validateNormalization(files, enc, columns)
	phases := []*phase{
		normPhase,
		validateHourCoverage(results),
		validateSummaries(results),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, r := range results {
		fmt.Printf("  %-30s %7d readings %5d dates\n", r.name, len(r.readings), countDates(r.readings))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i >= 20 {
				fmt.Printf("  ... and %d more\n", len(p.errors)-20)
				break
			}
			fmt.Printf("  %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("\nAll checks passed.")
	return 0
}

// validateNormalization decodes and normalizes every file. Files that fail
// are reported and excluded from later phases.
func validateNormalization(files []csvsource.File, enc string, columns domain.ColumnMap) ([]fileResult, *phase) {
	p := &phase{name: "Phase 1: Decoding and normalization"}
	var parser csvsource.Parser

	results := make([]fileResult, 0, len(files))
	for _, f := range files {
		rows, err := parser.Parse(f.Data, enc)
		if err != nil {
			p.errorf("%s: %v", f.Name, err)
			continue
		}
		readings, err := domain.Normalize(rows, columns)
		if err != nil {
			p.errorf("%s: %v", f.Name, err)
			continue
		}
		results = append(results, fileResult{name: f.Name, readings: readings})
	}
	return results, p
}

// validateHourCoverage flags repeated (date, hour) pairs and dates with
// missing hours.
func validateHourCoverage(results []fileResult) *phase {
	p := &phase{name: "Phase 2: Hour coverage"}

	type slot struct {
		date domain.DateKey
		hour int
	}
	seen := make(map[slot]string)
	hoursPerDate := make(map[domain.DateKey]int)
	for _, r := range results {
		for _, rd := range r.readings {
			s := slot{date: rd.Date(), hour: rd.Hour}
			if prev, ok := seen[s]; ok {
				p.errorf("%s hour %02d appears in %s and %s", s.date, s.hour, prev, r.name)
				continue
			}
			seen[s] = r.name
			hoursPerDate[s.date]++
		}
	}

	dates := make([]domain.DateKey, 0, len(hoursPerDate))
	for d := range hoursPerDate {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b domain.DateKey) int {
		if c := a.Year - b.Year; c != 0 {
			return c
		}
		if c := a.Month - b.Month; c != 0 {
			return c
		}
		return a.Day - b.Day
	})
	for _, d := range dates {
		if n := hoursPerDate[d]; n != 24 {
			p.errorf("%s has %d of 24 hours", d, n)
		}
	}
	return p
}

// validateSummaries loads every reading into a store and checks each date's
// summary through the same query path the service uses.
func validateSummaries(results []fileResult) *phase {
	p := &phase{name: "Phase 3: Daily summary consistency"}

	var all []domain.Reading
	for _, r := range results {
		all = append(all, r.readings...)
	}
	st := store.New()
	st.BulkLoad(all)

	querier := pipeline.NewQuerier(st, 0, observability.NewMetricsForTesting())

	counts := make(map[domain.DateKey]int)
	for _, rd := range all {
		counts[rd.Date()]++
	}

	for d, want := range counts {
		s := querier.Summarize(d.Year, d.Month, d.Day)
		if s.NoData {
			p.errorf("%s: summary reports no data for %d readings", d, want)
			continue
		}
		if s.Count != want {
			p.errorf("%s: summary count %d, want %d", d, s.Count, want)
		}
		if math.IsNaN(s.Mean) {
			continue
		}
		if s.Mean < s.Min-meanTolerance(s.Min) || s.Mean > s.Max+meanTolerance(s.Max) {
			p.errorf("%s: mean %.2f outside [%.2f, %.2f]", d, s.Mean, s.Min, s.Max)
		}
		if s.MaxHour < 0 || s.MaxHour > 23 || s.MinHour < 0 || s.MinHour > 23 {
			p.errorf("%s: extreme hours out of range (max %d, min %d)", d, s.MaxHour, s.MinHour)
		}
	}
	return p
}

// meanTolerance absorbs rounding in sum/n, which can land one ULP outside
// [Min, Max] when every reading is equal.
func meanTolerance(bound float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(bound))
}

func countDates(readings []domain.Reading) int {
	dates := make(map[domain.DateKey]struct{})
	for _, r := range readings {
		dates[r.Date()] = struct{}{}
	}
	return len(dates)
}
