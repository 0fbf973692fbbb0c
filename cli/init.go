package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TFMV/gluesync/config"
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Create a gluesync project configuration",
	Long: `Create a .gluesync.yml in the given directory (default: the current
directory) describing the table to sync and the catalog backend to sync it
into. The sqlite backend needs no credentials and is the default for local
experimentation; pass --catalog glue for the AWS Glue Data Catalog.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

type initOptions struct {
	catalog   string
	database  string
	table     string
	basePath  string
	region    string
	partition []string
}

var initOpts = &initOptions{}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initOpts.catalog, "catalog", "sqlite", "catalog type (glue|sqlite)")
	initCmd.Flags().StringVar(&initOpts.database, "database", "default", "catalog database name")
	initCmd.Flags().StringVar(&initOpts.table, "table", "", "table name (required)")
	initCmd.Flags().StringVar(&initOpts.basePath, "base-path", "", "table base path (required)")
	initCmd.Flags().StringVar(&initOpts.region, "region", "", "AWS region for the glue backend")
	initCmd.Flags().StringSliceVar(&initOpts.partition, "partition-field", nil, "partition field, repeatable, in key order")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", absPath, err)
	}

	configPath := filepath.Join(absPath, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("directory already contains a gluesync project (found %s)", config.ConfigFileName)
	}

	if initOpts.table == "" {
		return fmt.Errorf("--table is required")
	}
	if initOpts.basePath == "" {
		return fmt.Errorf("--base-path is required")
	}

	cfg := &config.Config{
		Name: filepath.Base(absPath),
		Catalog: config.CatalogConfig{
			Type: initOpts.catalog,
		},
		Table: config.TableConfig{
			Database:        initOpts.database,
			Name:            initOpts.table,
			BasePath:        initOpts.basePath,
			PartitionFields: initOpts.partition,
		},
	}

	switch initOpts.catalog {
	case "sqlite":
		cfg.Catalog.SQLite = &config.SQLiteConfig{
			Path: filepath.Join(absPath, ".gluesync", "catalog.db"),
		}
	case "glue":
		cfg.Catalog.Glue = &config.GlueConfig{Region: initOpts.region}
	default:
		return fmt.Errorf("unsupported catalog type: %s", initOpts.catalog)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.WriteConfig(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("Initialized gluesync project in %s\n", absPath)
	fmt.Printf("  config:  %s\n", configPath)
	fmt.Printf("  catalog: %s\n", cfg.Catalog.Type)
	fmt.Printf("  table:   %s.%s\n", cfg.Table.Database, cfg.Table.Name)
	return nil
}
