package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/display"
	"github.com/TFMV/gluesync/hudi"
	"github.com/TFMV/gluesync/sync"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the table's current catalog state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	_, cfg, err := config.FindConfig()
	if err != nil {
		return err
	}

	fsys, err := sync.OpenStorage(cfg)
	if err != nil {
		return err
	}
	meta, err := hudi.NewTableMetaClient(fsys, cfg.Sync.SupportTimestampType)
	if err != nil {
		return fmt.Errorf("failed to resolve table metadata: %w", err)
	}

	client, err := sync.NewClient(cmd.Context(), cfg, meta)
	if err != nil {
		return err
	}
	defer client.Close()

	renderer := display.NewRenderer(plainOutput(cmd))
	table := cfg.Table.Name

	exists, err := client.TableExists(cmd.Context(), table)
	if err != nil {
		return err
	}
	if !exists {
		renderer.Status(cfg.Table.Database, table, false, "", nil)
		return nil
	}

	lastSynced, _, err := client.LastCommitTimeSynced(cmd.Context(), table)
	if err != nil {
		return err
	}
	partitions, err := client.AllPartitions(cmd.Context(), table)
	if err != nil {
		return err
	}

	renderer.Status(cfg.Table.Database, table, true, lastSynced, partitions)
	return nil
}
