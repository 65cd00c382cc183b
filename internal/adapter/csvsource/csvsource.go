// Package csvsource reads station CSV exports into raw rows.
package csvsource

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"

	"github.com/couchcryptid/pm-density-service/internal/domain"
)

// DefaultEncoding is the code page used by the station exports.
const DefaultEncoding = "cp949"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// codePageAliases covers Windows code page names missing from the WHATWG and
// IANA indexes. x/text's EUC-KR decoder implements the CP949 extensions.
var codePageAliases = map[string]encoding.Encoding{
	"cp949":       korean.EUCKR,
	"ms949":       korean.EUCKR,
	"uhc":         korean.EUCKR,
	"windows-949": korean.EUCKR,
}

// Parser implements pipeline.RowParser.
type Parser struct{}

// Parse decodes data and reads it as a CSV with a header row.
func (Parser) Parse(data []byte, encodingName string) ([]domain.RawRow, error) {
	text, err := Decode(data, encodingName)
	if err != nil {
		return nil, err
	}
	return ReadRows(strings.NewReader(text))
}

// Decode converts data from the named encoding to UTF-8. An unknown encoding
// name or bytes the encoding cannot represent yield domain.ErrDecoding.
func Decode(data []byte, encodingName string) (string, error) {
	enc, err := lookupEncoding(encodingName)
	if err != nil {
		return "", err
	}

	if enc == unicode.UTF8 {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: invalid utf-8 byte sequence", domain.ErrDecoding)
		}
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrDecoding, encodingName, err)
	}
	// Legacy decoders substitute U+FFFD for invalid sequences instead of failing.
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("%w: %s: invalid byte sequence", domain.ErrDecoding, encodingName)
	}
	return string(bytes.TrimPrefix(out, utf8BOM)), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "utf-8"
	}
	if enc, ok := codePageAliases[key]; ok {
		return enc, nil
	}
	if enc, err := htmlindex.Get(key); err == nil {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: unsupported encoding %q", domain.ErrDecoding, name)
	}
	return enc, nil
}

// ReadRows reads a CSV with a header row. Cells are kept as strings; type
// interpretation belongs to domain.Normalize. A header without data rows
// yields no rows; input without a header is malformed.
func ReadRows(r io.Reader) ([]domain.RawRow, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", domain.ErrMalformedInput, err)
	}
	switch len(records) {
	case 0:
		return nil, fmt.Errorf("%w: read csv: no header row", domain.ErrMalformedInput)
	case 1:
		return []domain.RawRow{}, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("%w: read csv: %w", domain.ErrMalformedInput, df.Err)
	}

	header := df.Names()
	rows := make([]domain.RawRow, 0, df.Nrow())
	for _, rec := range df.Records()[1:] {
		row := make(domain.RawRow, len(header))
		for i, name := range header {
			row[strings.TrimSpace(name)] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// File is one source file read from disk.
type File struct {
	Name string
	Data []byte
}

// LoadDir reads every file in dir matching glob, sorted by name.
func LoadDir(dir, glob string) ([]File, error) {
	paths, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", glob, err)
	}

	files := make([]File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}
