// Package cli wires the icesnap demo command, grounded on the
// teacher's cli/root.go Cobra layout (rootCmd + Execute()).
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "icesnap",
	Short: "A standalone Iceberg-style snapshot producer",
	Long: `icesnap assembles and commits Iceberg-style table snapshots: it
writes rolling Avro manifests, enriches them in parallel, aggregates
summary totals, and drives an optimistic-concurrency commit with
exponential backoff against a pluggable TableOperations collaborator.`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("base-dir", "d", "./icesnap-data", "local directory backing manifests and metadata")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (defaults to ./icesnap.yml, ~/.icesnap/icesnap.yml, /etc/icesnap/icesnap.yml)")
}
