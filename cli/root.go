package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gluesync",
	Short: "Sync Apache Hudi table metadata into a data catalog",
	Long: `Gluesync reconciles a Hudi table's on-storage metadata with an external
catalog: it registers the database and table, keeps the column schema and
comments current, adds and drops partitions in batches, and stamps the
last-synced commit time into the table properties.

Supported catalog backends are the AWS Glue Data Catalog and an embedded
SQLite catalog for local development.`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Bool("plain", false, "disable styled output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}
}

func plainOutput(cmd *cobra.Command) bool {
	plain, _ := cmd.Flags().GetBool("plain")
	return plain
}
