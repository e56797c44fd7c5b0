// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biladi/heritage-report/internal/drivelink"
	"github.com/biladi/heritage-report/internal/record"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <assessments.csv>",
	Short: "Preview which row would be selected, without downloading anything",
	Long: `Inspect loads the assessment CSV the same way generate does and prints
the selected row, its image links, and how each link resolves. No network
requests are made.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	header, rows, err := record.Columns(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%d column(s), %d data row(s)\n", len(header), rows)
	for _, name := range header {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println()

	rec, err := record.Load(args[0], os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\nSelected row %d (assessment date %s)\n", rec.Row, rec.Date.Format("2006-01-02"))

	printLinks("Primary photo", record.SplitLinks(rec.PrimaryLink()))
	printLinks("Additional images", record.SplitLinks(rec.AdditionalLinks()))
	return nil
}

func printLinks(label string, raws []string) {
	fmt.Printf("%s: %d link(s)\n", label, len(raws))
	for _, raw := range raws {
		ref, err := drivelink.Resolve(raw)
		if err != nil {
			fmt.Printf("  unrecognized: %s\n", raw)
			continue
		}
		fmt.Printf("  %s (%s)\n", ref.FileID, ref.Source)
	}
}
