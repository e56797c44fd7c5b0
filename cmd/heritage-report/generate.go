// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/biladi/heritage-report/internal/drivelink"
	"github.com/biladi/heritage-report/internal/fetch"
	"github.com/biladi/heritage-report/internal/manifest"
	"github.com/biladi/heritage-report/internal/record"
	"github.com/biladi/heritage-report/internal/report"
	"github.com/biladi/heritage-report/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "heritage-report/2.0"
)

var generateCmd = &cobra.Command{
	Use:   "generate <assessments.csv>",
	Short: "Generate a PDF report from an assessment CSV",
	Long: `Generate reads the assessment CSV, selects the row with the most recent
assessment date, downloads the Google Drive photos that row links, and
writes <base>_Report_<timestamp>.pdf next to the input file.

Image failures never abort the run: each failed photo is reported and its
slot in the report is left empty. Only an unreadable or structurally
invalid CSV (or an unwritable output) exits non-zero.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("output", "", "output PDF path (default: derived from the input name)")
	generateCmd.Flags().Duration("timeout", 0, "per-download HTTP timeout (default 30s)")
	generateCmd.Flags().Int64("max-image-bytes", 0, "per-image size ceiling in bytes (default 20 MiB)")
	generateCmd.Flags().Int("workers", 0, "concurrent downloads (default 4)")
	generateCmd.Flags().String("font", "", "Unicode TTF for right-to-left scripts (default: built-in Latin fonts)")
	generateCmd.Flags().String("export-images", "", "also copy downloaded images into this directory")
	generateCmd.Flags().String("manifest", "", "write a YAML run summary to this path")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	csvPath := args[0]
	now := time.Now()

	cfg := acquisitionConfig(cmd)
	fontPath := flagOrConfig(cmd, "font", "compose.font_path")

	rec, err := record.Load(csvPath, os.Stdout)
	if err != nil {
		return err
	}

	primary, additional, unresolved := resolveLinks(rec)

	client := &http.Client{Timeout: cfg.Timeout}
	engine, err := fetch.NewEngine(client, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	refs := append(append([]drivelink.Reference{}, primary...), additional...)
	assets := engine.AcquireAll(cmd.Context(), refs, os.Stdout)
	stats := engine.Stats()

	doc := report.Compose(report.ComposeInput{
		Record:     rec,
		Primary:    primary,
		Additional: additional,
		Assets:     assets,
		LogoDir:    filepath.Dir(csvPath),
		Generated:  now,
	})
	pdfBytes, err := report.Render(doc, report.RenderOptions{FontPath: fontPath})
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = report.OutputPath(csvPath, now)
	}
	if err := os.WriteFile(outPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if exportDir, _ := cmd.Flags().GetString("export-images"); exportDir != "" {
		prefix := exportPrefix(rec)
		n, err := engine.ExportTo(exportDir, prefix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: image export incomplete: %v\n", err)
		} else {
			fmt.Printf("exported %d image(s) to %s\n", n, exportDir)
		}
	}

	if manifestPath, _ := cmd.Flags().GetString("manifest"); manifestPath != "" {
		if err := writeManifest(manifestPath, csvPath, outPath, now, rec, len(refs), unresolved, stats); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not write run summary: %v\n", err)
		}
	}

	printSummary(outPath, len(refs), unresolved, stats)
	return nil
}

// acquisitionConfig builds the download settings, flag over config file
// over built-in default.
func acquisitionConfig(cmd *cobra.Command) types.AcquisitionConfig {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = viper.GetDuration("acquisition.timeout")
	}
	if timeout == 0 {
		timeout = defaultTimeout
	}

	maxBytes, _ := cmd.Flags().GetInt64("max-image-bytes")
	if maxBytes == 0 {
		maxBytes = viper.GetInt64("acquisition.max_image_bytes")
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers == 0 {
		workers = viper.GetInt("acquisition.workers")
	}

	return types.AcquisitionConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		MaxImageBytes: maxBytes,
		Workers:       workers,
	}
}

func flagOrConfig(cmd *cobra.Command, flag, key string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(key)
}

// resolveLinks splits and resolves both image fields of the selected
// record, reporting unrecognized links without failing the run.
func resolveLinks(rec *types.Record) (primary, additional []drivelink.Reference, unresolved int) {
	primary, bad := drivelink.ResolveAll(record.SplitLinks(rec.PrimaryLink()))
	for _, e := range bad {
		fmt.Fprintf(os.Stderr, "warning: primary photo link not recognized: %v\n", e)
	}
	unresolved += len(bad)

	additional, bad = drivelink.ResolveAll(record.SplitLinks(rec.AdditionalLinks()))
	for _, e := range bad {
		fmt.Fprintf(os.Stderr, "warning: additional image link not recognized: %v\n", e)
	}
	unresolved += len(bad)
	return primary, additional, unresolved
}

// exportPrefix derives the exported-image filename prefix from the
// monument name, falling back to "site".
func exportPrefix(rec *types.Record) string {
	name := rec.Get(types.MonumentNameColumn)
	if name == "" {
		return "site"
	}
	out := []rune(name)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

func writeManifest(path, csvPath, outPath string, now time.Time, rec *types.Record, linked, unresolved int, stats fetch.Stats) error {
	counts := manifest.CountsFromStats(stats)
	counts.Linked = linked
	counts.Unresolved = unresolved
	return manifest.Write(&manifest.Summary{
		CSVFile:        csvPath,
		OutputFile:     outPath,
		Generated:      now,
		MonumentName:   rec.Get(types.MonumentNameColumn),
		AssessmentDate: rec.Date.Format("2006-01-02"),
		SelectedRow:    rec.Row,
		Images:         counts,
	}, path)
}

func printSummary(outPath string, linked, unresolved int, stats fetch.Stats) {
	fmt.Printf("\nReport written: %s\n", outPath)
	fmt.Printf("Images: %d linked, %d unresolved, %d downloaded, %d failed\n",
		linked, unresolved, stats.Succeeded, stats.Failed)
	for reason, n := range stats.ByReason {
		fmt.Printf("  %s: %d\n", reason, n)
	}
}
