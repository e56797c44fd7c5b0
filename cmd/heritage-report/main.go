// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the heritage-report CLI. It turns a
// damage-assessment form export (CSV plus Google Drive photo links) into a
// formatted PDF report.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the heritage-report CLI.
var rootCmd = &cobra.Command{
	Use:   "heritage-report",
	Short: "Generate heritage-site damage assessment reports from form exports",
	Long: `heritage-report reads a damage-assessment CSV exported from the field
survey form, selects the most recent submission, downloads the photos it
links on Google Drive, and renders a formatted PDF report next to the
input file.

The generate subcommand runs the full pipeline; inspect previews the CSV
and the row that would be selected without touching the network.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./heritage-report.yaml or ~/.config/heritage-report/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("heritage-report")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "heritage-report"))
		}
	}

	viper.SetEnvPrefix("HERITAGE_REPORT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
