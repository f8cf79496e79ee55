// Package cli implements the dopamind command-line interface using Cobra.
// Each subcommand drives one engine operation against the configured store.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "dopamind",
	Short: "dopamind: points, badges and daily challenges for attention-aware reading",
	Long: `dopamind tracks reading progress on the digital-attention course site:
points, badges, milestones, the daily challenge and its point multiplier.

Run 'dopamind serve' for the HTTP API the site talks to, or drive the
engine directly from the terminal with the commands below.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
