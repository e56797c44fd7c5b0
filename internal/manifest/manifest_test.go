// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package manifest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biladi/heritage-report/internal/fetch"
)

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	want := &Summary{
		CSVFile:        "assessments.csv",
		OutputFile:     "assessments_Report_20240301_143005.pdf",
		Generated:      time.Date(2024, 3, 1, 14, 30, 5, 0, time.UTC),
		MonumentName:   "Old Fort",
		AssessmentDate: "2023-06-15",
		SelectedRow:    3,
		Images: ImageCounts{
			Linked:     5,
			Unresolved: 1,
			Attempted:  4,
			Succeeded:  3,
			Failed:     1,
			ByReason:   map[string]int{"network-error": 1},
		},
	}

	require.NoError(t, Write(want, path))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestCountsFromStats(t *testing.T) {
	stats := fetch.Stats{
		Attempted: 3,
		Succeeded: 1,
		Failed:    2,
		ByReason: map[fetch.FailReason]int{
			fetch.FailTimeout: 1,
			fetch.FailNetwork: 1,
		},
	}
	got := CountsFromStats(stats)
	assert.Equal(t, 3, got.Attempted)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, map[string]int{"timeout": 1, "network-error": 1}, got.ByReason)
}
