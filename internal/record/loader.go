// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package record loads the assessment CSV and selects the single
// authoritative submission for the report run.
package record

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/biladi/heritage-report/pkg/types"
)

// ErrorReason classifies a fatal data error.
type ErrorReason string

const (
	ReasonUndecodable    ErrorReason = "undecodable"
	ReasonMissingField   ErrorReason = "missing-field"
	ReasonNoValidRecords ErrorReason = "no-valid-records"
)

// DataError is a fatal structural problem with the input table. Anything
// that makes the CSV untrustworthy aborts the run; everything else is a
// per-row warning.
type DataError struct {
	Reason ErrorReason
	Detail string
}

func (e *DataError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("data error: %s", e.Reason)
	}
	return fmt.Sprintf("data error: %s: %s", e.Reason, e.Detail)
}

// requiredColumns must be present in the header; the run cannot proceed
// without them. Individual assessment fields may be blank.
var requiredColumns = []string{
	types.DateColumn,
	types.PrimaryImageColumn,
	types.AdditionalImagesColumn,
}

// dateFormats is the fixed parse order for the assessment-date field. The
// form exports YYYY/MM/DD; the alternatives cover exports that passed
// through spreadsheet round-trips.
var dateFormats = []string{
	"2006/01/02",
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"01/02/2006 15:04:05",
}

// legacyDecoders is the fixed fallback order tried after UTF-8 fails.
// Windows-1252 comes first because ISO-8859-1 accepts every byte sequence
// and would otherwise shadow it.
var legacyDecoders = []struct {
	name    string
	decoder *encoding.Decoder
}{
	{"windows-1252", charmap.Windows1252.NewDecoder()},
	{"iso-8859-1", charmap.ISO8859_1.NewDecoder()},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Load reads the CSV at path and returns the selected record. Progress and
// per-row warnings are written to w. Structural problems return a
// *DataError; dropped rows do not.
func Load(path string, w io.Writer) (*types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	text, encName, err := decode(data)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "decoded %s as %s\n", path, encName)

	header, rows, err := parseTable(text)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "loaded %d row(s), %d column(s)\n", len(rows), len(header))

	if err := checkRequired(header); err != nil {
		return nil, err
	}

	return selectLatest(header, rows, w)
}

// decode finds the first encoding in the fallback order that yields valid
// text for the raw bytes.
func decode(data []byte) (string, string, error) {
	trimmed := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(trimmed) {
		return string(trimmed), "utf-8", nil
	}
	for i, d := range legacyDecoders {
		decoded, err := d.decoder.Bytes(data)
		if err != nil {
			continue
		}
		// charmap decoders substitute U+FFFD for bytes the encoding does
		// not define; treat that as a decode failure unless this is the
		// terminal fallback.
		last := i == len(legacyDecoders)-1
		if !last && bytes.ContainsRune(decoded, utf8.RuneError) {
			continue
		}
		return string(decoded), d.name, nil
	}
	return "", "", &DataError{Reason: ReasonUndecodable, Detail: "no supported text encoding decodes the file"}
}

// parseTable parses decoded text as a comma-separated table with a header
// row. Header names are whitespace-trimmed so form exports with trailing
// spaces in column names map cleanly.
func parseTable(text string) ([]string, []map[string]string, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1

	raw, err := reader.ReadAll()
	if err != nil {
		return nil, nil, &DataError{Reason: ReasonUndecodable, Detail: err.Error()}
	}
	if len(raw) == 0 {
		return nil, nil, &DataError{Reason: ReasonNoValidRecords, Detail: "file is empty"}
	}

	header := make([]string, len(raw[0]))
	for i, name := range raw[0] {
		header[i] = strings.TrimSpace(name)
	}

	rows := make([]map[string]string, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(cells) {
				row[name] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func checkRequired(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	var missing []string
	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &DataError{Reason: ReasonMissingField, Detail: "missing required column(s): " + strings.Join(missing, ", ")}
	}
	return nil
}

// selectLatest picks the row with the maximum parseable assessment date.
// Rows without a parseable date are dropped with a warning. Ties resolve
// to the first-occurring row: the comparison is strictly-greater while
// scanning in input order.
func selectLatest(header []string, rows []map[string]string, w io.Writer) (*types.Record, error) {
	var best *types.Record
	for i, row := range rows {
		dateStr := strings.TrimSpace(row[types.DateColumn])
		if dateStr == "" {
			fmt.Fprintf(w, "warning: row %d has no assessment date, skipping\n", i+1)
			continue
		}
		date, err := ParseAssessmentDate(dateStr)
		if err != nil {
			fmt.Fprintf(w, "warning: row %d has unparseable assessment date %q, skipping\n", i+1, dateStr)
			continue
		}
		if best == nil || date.After(best.Date) {
			best = &types.Record{Fields: row, Date: date, Row: i + 1}
		}
	}
	if best == nil {
		return nil, &DataError{Reason: ReasonNoValidRecords, Detail: "no row has a parseable assessment date"}
	}
	fmt.Fprintf(w, "selected row %d (assessment date %s)\n", best.Row, best.Date.Format("2006-01-02"))
	return best, nil
}

// Columns reads just the table shape: the trimmed header and the number
// of data rows. Used by inspection; shares the decode path with Load.
func Columns(path string) ([]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	text, _, err := decode(data)
	if err != nil {
		return nil, 0, err
	}
	header, rows, err := parseTable(text)
	if err != nil {
		return nil, 0, err
	}
	return header, len(rows), nil
}

// ParseAssessmentDate parses a date cell under the fixed format list.
func ParseAssessmentDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// SplitLinks splits a comma-separated link field into individual raw
// links, trimming whitespace and discarding empty tokens.
func SplitLinks(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	var links []string
	for _, tok := range strings.Split(field, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			links = append(links, tok)
		}
	}
	return links
}
