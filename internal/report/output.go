// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"path/filepath"
	"strings"
	"time"
)

// OutputPath derives the report filename from the input CSV's base name
// plus a generation timestamp, adjacent to the input:
// <dir>/<base>_Report_<20060102_150405>.pdf.
func OutputPath(csvPath string, now time.Time) string {
	dir := filepath.Dir(csvPath)
	base := strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
	name := base + "_Report_" + now.Format("20060102_150405") + ".pdf"
	return filepath.Join(dir, name)
}
