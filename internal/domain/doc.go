// Package domain models hourly PM2.5 particulate-matter density readings.
//
// # Data Source
//
// Readings come from per-year CSV exports of an air quality monitoring
// station. Each export carries one row per hour with a timestamp column and
// a density column (micrograms per cubic meter). The files are usually
// encoded in a legacy Korean code page (CP949), and the timestamp header was
// renamed between export years, so both the encoding and the column names
// are configuration rather than literals.
//
// # Canonical Schema
//
// Every row is projected down to five fields:
//
//	year, month, day, hour, density
//
// Density is passed through unchanged. Negative values are "missing"
// sentinels in the source data and are kept as-is; empty or NA cells
// become NaN.
//
// # Store Semantics
//
// Readings are immutable values. Duplicate timestamps from overlapping
// exports are preserved, never deduplicated, and count toward aggregates.
//
// # Aggregation
//
// Summarize sorts a day's readings by hour (stable, so duplicates keep
// insertion order) and reports max and min with the first hour at which each
// occurs, plus the arithmetic mean over all readings. A day without readings
// yields a Summary with NoData set; that is an expected outcome, not an error.
package domain
