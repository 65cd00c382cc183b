// Command genmock writes mock yearly PM2.5 source files in the layout of the
// station exports: a cp949-encoded CSV per year with one row per hour.
//
// Usage:
//
//	go run ./cmd/genmock -out data -from 2019 -to 2023 -seed 42
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/korean"

	"github.com/couchcryptid/pm-density-service/internal/domain"
)

const (
	timestampHeader = "일시"
	densityHeader   = "1시간평균 미세먼지농도(㎍/㎥)"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for generated CSV files")
	from := flag.Int("from", 2019, "first year to generate")
	to := flag.Int("to", 2023, "last year to generate (inclusive)")
	seed := flag.Uint64("seed", 42, "random seed for reproducible output")
	missing := flag.Float64("missing", 0.01, "fraction of hours with a blank density")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *from > *to {
		return fmt.Errorf("-from %d is after -to %d", *from, *to)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", *outDir, err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))
	total := 0
	for year := *from; year <= *to; year++ {
		data, rows, err := generateYear(rng, year, *missing)
		if err != nil {
			return fmt.Errorf("year %d: %w", year, err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("pm_%d.csv", year))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		total += rows
		log.Printf("%s: %d rows", path, rows)
	}

	log.Printf("total: %d rows", total)
	return nil
}

// generateYear renders one year of hourly readings as cp949 CSV bytes.
func generateYear(rng *rand.Rand, year int, missing float64) ([]byte, int, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s,%s\r\n", timestampHeader, densityHeader)

	rows := 0
	for month := 1; month <= 12; month++ {
		for day := 1; day <= domain.DaysInMonth(year, month); day++ {
			for hour := range 24 {
				fmt.Fprintf(&buf, "%04d-%02d-%02d %02d:00,", year, month, day, hour)
				if rng.Float64() >= missing {
					fmt.Fprintf(&buf, "%d", density(rng, month, hour))
				}
				buf.WriteString("\r\n")
				rows++
			}
		}
	}

	encoded, err := korean.EUCKR.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return nil, 0, fmt.Errorf("encode cp949: %w", err)
	}
	return encoded, rows, nil
}

// density models a winter-heavy seasonal curve with a morning and evening
// traffic bump, plus noise.
func density(rng *rand.Rand, month, hour int) int {
	seasonal := 35 + 20*math.Cos(2*math.Pi*float64(month-1)/12)
	daily := 8*math.Exp(-math.Pow(float64(hour-8), 2)/8) + 6*math.Exp(-math.Pow(float64(hour-19), 2)/8)
	v := seasonal + daily + rng.NormFloat64()*10
	if v < 1 {
		v = 1
	}
	return int(math.Round(v))
}
