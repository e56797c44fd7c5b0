// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"time"
)

// Column names required in every assessment export. All other columns are
// optional free text. Header names are whitespace-trimmed at load, so these
// are the canonical forms.
const (
	DateColumn             = "Date of Assessment"
	PrimaryImageColumn     = "Primary Display Photo Upload"
	AdditionalImagesColumn = "Additional images and files"
	MonumentNameColumn     = "Monument Name"
)

// Record is the single form submission a report run is built from. Fields
// maps trimmed column names to raw cell values. A Record belongs to exactly
// one run and is read-only once handed to the composer.
type Record struct {
	// Fields maps trimmed column name to cell value.
	Fields map[string]string

	// Date is the parsed assessment date used for selection.
	Date time.Time

	// Row is the 1-based data row index the record came from (header
	// excluded). Kept for warnings and the run summary.
	Row int
}

// Get returns the trimmed value of the named field, or "" when absent.
func (r *Record) Get(name string) string {
	if r == nil || r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[name])
}

// PrimaryLink returns the raw primary photo link field.
func (r *Record) PrimaryLink() string {
	return r.Get(PrimaryImageColumn)
}

// AdditionalLinks returns the raw additional-images field, still
// comma-separated. Splitting is the record loader's job.
func (r *Record) AdditionalLinks() string {
	return r.Get(AdditionalImagesColumn)
}
