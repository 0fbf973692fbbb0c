package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hamba/avro/v2"
)

// Generates a minimal Hudi-style table layout on the local filesystem:
// a .hoodie meta folder with table properties and one completed commit, plus
// empty partition directories. Handy for exercising the sqlite backend
// without real table data.
func main() {
	baseDir := "testdata/trips"
	if len(os.Args) > 1 {
		baseDir = os.Args[1]
	}

	schemaJSON := `{
		"type": "record",
		"name": "trip",
		"fields": [
			{"name": "id", "type": "string"},
			{"name": "fare", "type": "double"},
			{"name": "passengers", "type": "int"},
			{"name": "date", "type": "string"}
		]
	}`
	if _, err := avro.Parse(schemaJSON); err != nil {
		log.Fatalf("Failed to parse schema: %v", err)
	}

	metaDir := filepath.Join(baseDir, ".hoodie")
	if err := os.MkdirAll(metaDir, 0755); err != nil {
		log.Fatalf("Failed to create meta folder: %v", err)
	}

	properties := "hoodie.table.name=trips\nhoodie.table.type=COPY_ON_WRITE\n"
	if err := os.WriteFile(filepath.Join(metaDir, "hoodie.properties"), []byte(properties), 0644); err != nil {
		log.Fatalf("Failed to write table properties: %v", err)
	}

	commit := map[string]any{
		"partitionToWriteStats": map[string]any{},
		"extraMetadata":         map[string]string{"schema": schemaJSON},
	}
	encoded, err := json.MarshalIndent(commit, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode commit metadata: %v", err)
	}

	timestamp := time.Now().UTC().Format("20060102150405")
	commitFile := filepath.Join(metaDir, timestamp+".commit")
	if err := os.WriteFile(commitFile, encoded, 0644); err != nil {
		log.Fatalf("Failed to write commit metadata: %v", err)
	}

	partitions := []string{"date=2024-01-01", "date=2024-01-02", "date=2024-01-03"}
	for _, p := range partitions {
		if err := os.MkdirAll(filepath.Join(baseDir, p), 0755); err != nil {
			log.Fatalf("Failed to create partition %s: %v", p, err)
		}
	}

	fmt.Printf("Generated table layout in %s\n", baseDir)
	fmt.Printf("  commit:     %s\n", commitFile)
	fmt.Printf("  partitions: %d\n", len(partitions))
}
