// Package cmd provides the CLI commands for the kokorod daemon.
package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "kokorod",
	Short: "Kokoro text-to-speech daemon and utilities",
	Long: `A text-to-speech daemon serving Kokoro voices over HTTP with per-language
pipeline pools, plus utilities for one-shot synthesis and service inspection.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "path to config file (default ./kokorod.yaml)")
}
