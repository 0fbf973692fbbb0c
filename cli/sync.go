package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/display"
	"github.com/TFMV/gluesync/hudi"
	"github.com/TFMV/gluesync/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the table's metadata with the catalog",
	Long: `Run one reconciliation pass: ensure the database and table exist,
update the column schema and comments from the latest commit, add, update,
and drop partitions to match storage, and stamp the last-synced commit time.`,
	RunE: runSync,
}

var syncDryRun bool

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "resolve metadata and report without writing to the catalog")
}

func runSync(cmd *cobra.Command, args []string) error {
	_, cfg, err := config.FindConfig()
	if err != nil {
		return err
	}

	renderer := display.NewRenderer(plainOutput(cmd))

	fsys, err := sync.OpenStorage(cfg)
	if err != nil {
		return err
	}

	meta, err := hudi.NewTableMetaClient(fsys, cfg.Sync.SupportTimestampType)
	if err != nil {
		return fmt.Errorf("failed to resolve table metadata: %w", err)
	}

	if syncDryRun {
		return dryRun(cfg, meta)
	}

	client, err := sync.NewClient(cmd.Context(), cfg, meta)
	if err != nil {
		return err
	}
	defer client.Close()

	extractor, err := sync.NewExtractor(cfg)
	if err != nil {
		return err
	}

	syncer := sync.NewSyncer(client, fsys, meta, extractor, cfg, nil)
	report, err := syncer.Run(cmd.Context())
	if err != nil {
		renderer.Error(err)
		return err
	}

	renderer.Report(report)
	return nil
}

// dryRun resolves the schema and timeline without touching the catalog.
func dryRun(cfg *config.Config, meta *hudi.TableMetaClient) error {
	schema, err := meta.TableSchema(true)
	if err != nil {
		return err
	}

	fmt.Printf("table %s.%s (%s)\n", cfg.Table.Database, cfg.Table.Name, cfg.Table.BasePath)
	if instant, ok := meta.LastInstant(); ok {
		fmt.Printf("latest commit: %s (%s)\n", instant.Timestamp, instant.Action)
	} else {
		fmt.Println("latest commit: none")
	}
	fmt.Printf("columns (%d):\n", len(schema.Fields))
	for _, field := range schema.Fields {
		fmt.Printf("  %-30s %s\n", field.Name, field.Type)
	}
	return nil
}
