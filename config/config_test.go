package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Name: "trips-sync",
		Catalog: CatalogConfig{
			Type: "glue",
			Glue: &GlueConfig{Region: "us-east-1"},
		},
		Table: TableConfig{
			Database:        "warehouse",
			Name:            "trips",
			BasePath:        "s3://bucket/tables/trips",
			PartitionFields: []string{"date"},
		},
		Sync: SyncConfig{
			MetadataFileListing: true,
			TableProperties:     map[string]string{"owner": "data-eng"},
		},
	}
}

func TestWriteAndReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, WriteConfig(path, validConfig()))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "trips-sync", cfg.Name)
	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, "glue", cfg.Catalog.Type)
	assert.Equal(t, "us-east-1", cfg.Catalog.Glue.Region)
	assert.Equal(t, []string{"date"}, cfg.Table.PartitionFields)
	assert.Equal(t, "data-eng", cfg.Sync.TableProperties["owner"])
}

func TestReadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg := validConfig()
	cfg.Table.Database = ""
	require.NoError(t, WriteConfig(path, cfg))

	_, err := ReadConfig(path)
	assert.ErrorContains(t, err, "table.database is required")
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Catalog.Type = "hive"
	assert.ErrorContains(t, cfg.Validate(), "unsupported catalog type")

	cfg.Catalog.Type = ""
	assert.ErrorContains(t, cfg.Validate(), "catalog.type is required")

	cfg = validConfig()
	cfg.Catalog.Type = "sqlite"
	cfg.Catalog.SQLite = nil
	assert.ErrorContains(t, cfg.Validate(), "sqlite catalog configuration is required")

	cfg.Catalog.SQLite = &SQLiteConfig{Path: "catalog.db"}
	require.NoError(t, cfg.Validate())
}

func TestFindConfigWalksParents(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, WriteConfig(filepath.Join(root, ConfigFileName), validConfig()))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(cwd) })
	require.NoError(t, os.Chdir(nested))

	path, cfg, err := FindConfig()
	require.NoError(t, err)
	assert.Equal(t, "trips-sync", cfg.Name)
	assert.True(t, filepath.IsAbs(path))
}

func TestFindConfigMissing(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(cwd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	_, _, err = FindConfig()
	assert.Error(t, err)
}
