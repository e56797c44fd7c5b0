// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records the outcome of a report run as a YAML file,
// so batch callers can audit what was generated without parsing the PDF.
package manifest

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/biladi/heritage-report/internal/fetch"
)

// Summary is the machine-readable record of one report run.
type Summary struct {
	CSVFile        string    `yaml:"csv_file"`
	OutputFile     string    `yaml:"output_file"`
	Generated      time.Time `yaml:"generated"`
	MonumentName   string    `yaml:"monument_name,omitempty"`
	AssessmentDate string    `yaml:"assessment_date,omitempty"`
	SelectedRow    int       `yaml:"selected_row"`

	Images ImageCounts `yaml:"images"`
}

// ImageCounts breaks acquisition outcomes down by failure reason.
type ImageCounts struct {
	Linked     int            `yaml:"linked"`
	Unresolved int            `yaml:"unresolved"`
	Attempted  int            `yaml:"attempted"`
	Succeeded  int            `yaml:"succeeded"`
	Failed     int            `yaml:"failed"`
	ByReason   map[string]int `yaml:"by_reason,omitempty"`
}

// CountsFromStats folds acquisition stats into the summary's image
// counters. Linked and Unresolved come from link resolution and are set
// by the caller.
func CountsFromStats(stats fetch.Stats) ImageCounts {
	c := ImageCounts{
		Attempted: stats.Attempted,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
	}
	if len(stats.ByReason) > 0 {
		c.ByReason = make(map[string]int, len(stats.ByReason))
		for reason, n := range stats.ByReason {
			c.ByReason[string(reason)] = n
		}
	}
	return c
}

// Write serializes the summary to a YAML file.
func Write(s *Summary, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling run summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a previously written run summary.
func Read(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing run summary %s: %w", path, err)
	}
	return &s, nil
}
