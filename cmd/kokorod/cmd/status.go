package cmd

import (
	"github.com/spf13/cobra"

	"github.com/andrei-cloud/kokorod/internal/cli"
)

var statusAddr string

// statusCmd represents the status command.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Live pool status dashboard",
	Long: `Poll a running daemon's health endpoint and render per-language pool
occupancy, circuit state and request counters as a live terminal dashboard.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return cli.RunStatus(statusAddr)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().
		StringVar(&statusAddr, "addr", "http://127.0.0.1:8000", "base URL of the running daemon")
}
