package hudi

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/fs"
)

// schemaFromBaseFile reads the schema out of a parquet base file. Used when a
// commit carries no writer schema in its metadata.
func schemaFromBaseFile(fsys fs.FileSystem, path string, supportTimestamp bool) (catalog.Schema, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return catalog.Schema{}, fmt.Errorf("failed to read base file %s: %w", path, err)
	}

	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return catalog.Schema{}, fmt.Errorf("failed to open base file %s: %w", path, err)
	}

	var schema catalog.Schema
	for _, field := range file.Schema().Fields() {
		hiveType, err := parquetHiveType(field, supportTimestamp)
		if err != nil {
			return catalog.Schema{}, fmt.Errorf("failed to convert column %s: %w", field.Name(), err)
		}
		schema.Fields = append(schema.Fields, catalog.FieldSchema{Name: field.Name(), Type: hiveType})
	}
	return schema, nil
}

func parquetHiveType(field parquet.Field, supportTimestamp bool) (string, error) {
	if !field.Leaf() {
		parts := make([]string, 0, len(field.Fields()))
		for _, child := range field.Fields() {
			inner, err := parquetHiveType(child, supportTimestamp)
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s:%s", child.Name(), inner))
		}
		return fmt.Sprintf("struct<%s>", strings.Join(parts, ",")), nil
	}

	if hiveType, ok := logicalHiveType(field.Type().LogicalType(), supportTimestamp); ok {
		return hiveType, nil
	}

	switch field.Type().Kind() {
	case parquet.Boolean:
		return "boolean", nil
	case parquet.Int32:
		return "int", nil
	case parquet.Int64, parquet.Int96:
		return "bigint", nil
	case parquet.Float:
		return "float", nil
	case parquet.Double:
		return "double", nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return "binary", nil
	default:
		return "", fmt.Errorf("unsupported parquet kind %v", field.Type().Kind())
	}
}

func logicalHiveType(lt *format.LogicalType, supportTimestamp bool) (string, bool) {
	if lt == nil {
		return "", false
	}
	switch {
	case lt.UTF8 != nil:
		return "string", true
	case lt.Date != nil:
		return "date", true
	case lt.Timestamp != nil:
		if supportTimestamp {
			return "timestamp", true
		}
		return "bigint", true
	case lt.Decimal != nil:
		return fmt.Sprintf("decimal(%d,%d)", lt.Decimal.Precision, lt.Decimal.Scale), true
	default:
		return "", false
	}
}
