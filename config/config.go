package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the per-project configuration file gluesync looks for.
const ConfigFileName = ".gluesync.yml"

// Config represents the main gluesync configuration.
type Config struct {
	Name    string        `yaml:"name"`
	Version string        `yaml:"version,omitempty"`
	Catalog CatalogConfig  `yaml:"catalog"`
	Table   TableConfig    `yaml:"table"`
	Storage *StorageConfig `yaml:"storage,omitempty"`
	Sync    SyncConfig     `yaml:"sync,omitempty"`
}

// CatalogConfig holds catalog-backend configuration.
type CatalogConfig struct {
	Type   string        `yaml:"type"`
	Glue   *GlueConfig   `yaml:"glue,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// GlueConfig holds AWS Glue Data Catalog configuration. Credentials come
// from the standard AWS environment/profile chain.
type GlueConfig struct {
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// SQLiteConfig holds the embedded catalog's database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// TableConfig identifies the Hudi table being synced.
type TableConfig struct {
	Database        string   `yaml:"database"`
	Name            string   `yaml:"name"`
	BasePath        string   `yaml:"base_path"`
	PartitionFields []string `yaml:"partition_fields,omitempty"`
	// Extractor selects how partition-key values are recovered from a
	// relative partition path: "multi-part" (hive-style key=value segments,
	// the default) or "slash-encoded-day" (yyyy/mm/dd).
	Extractor string `yaml:"extractor,omitempty"`
}

// StorageConfig configures access to the table's storage when the base path
// is not a local directory.
type StorageConfig struct {
	S3 *S3Config `yaml:"s3,omitempty"`
}

// S3Config holds object-store connection details for s3:// base paths. Empty
// credentials fall back to the standard AWS environment variables.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Secure    bool   `yaml:"secure,omitempty"`
}

// SyncConfig holds the knobs of a sync pass.
type SyncConfig struct {
	CreateManagedTable   bool              `yaml:"create_managed_table,omitempty"`
	SkipTableArchive     bool              `yaml:"skip_table_archive,omitempty"`
	MetadataFileListing  bool              `yaml:"metadata_file_listing,omitempty"`
	SupportTimestampType bool              `yaml:"support_timestamp_type,omitempty"`
	SerdeProperties      map[string]string `yaml:"serde_properties,omitempty"`
	TableProperties      map[string]string `yaml:"table_properties,omitempty"`
}

// WriteConfig writes a configuration to a YAML file.
func WriteConfig(path string, cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = "1"
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	defer encoder.Close()

	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// ReadConfig reads a configuration from a YAML file.
func ReadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// FindConfig searches for a .gluesync.yml file in the current directory or
// its parents.
func FindConfig() (string, *Config, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	for {
		configPath := filepath.Join(currentDir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := ReadConfig(configPath)
			if err != nil {
				return "", nil, err
			}
			return configPath, cfg, nil
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			break
		}
		currentDir = parent
	}

	return "", nil, fmt.Errorf("no %s found in current directory or parents", ConfigFileName)
}

// Validate checks the fields every backend needs.
func (c *Config) Validate() error {
	if c.Table.Database == "" {
		return fmt.Errorf("table.database is required")
	}
	if c.Table.Name == "" {
		return fmt.Errorf("table.name is required")
	}
	if c.Table.BasePath == "" {
		return fmt.Errorf("table.base_path is required")
	}
	switch c.Catalog.Type {
	case "glue", "sqlite":
	case "":
		return fmt.Errorf("catalog.type is required")
	default:
		return fmt.Errorf("unsupported catalog type: %s", c.Catalog.Type)
	}
	if c.Catalog.Type == "sqlite" && c.Catalog.SQLite == nil {
		return fmt.Errorf("sqlite catalog configuration is required")
	}
	return nil
}
