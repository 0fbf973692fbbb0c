package hudi

import (
	"fmt"
	"strings"

	"github.com/hamba/avro/v2"

	"github.com/TFMV/gluesync/catalog"
)

// metadataFields are the bookkeeping columns Hudi prepends to every record.
var metadataFields = []string{
	"_hoodie_commit_time",
	"_hoodie_commit_seqno",
	"_hoodie_record_key",
	"_hoodie_partition_path",
	"_hoodie_file_name",
}

// schemaFromAvro converts a writer schema into hive field schemas. Timestamp
// logical types map to bigint unless supportTimestamp is set.
func schemaFromAvro(schemaJSON string, supportTimestamp bool) (catalog.Schema, error) {
	parsed, err := avro.Parse(schemaJSON)
	if err != nil {
		return catalog.Schema{}, fmt.Errorf("failed to parse avro schema: %w", err)
	}

	record, ok := parsed.(*avro.RecordSchema)
	if !ok {
		return catalog.Schema{}, fmt.Errorf("avro schema is not a record")
	}

	schema := catalog.Schema{Doc: record.Doc()}
	for _, field := range record.Fields() {
		hiveType, err := hiveType(field.Type(), supportTimestamp)
		if err != nil {
			return catalog.Schema{}, fmt.Errorf("failed to convert field %s: %w", field.Name(), err)
		}
		schema.Fields = append(schema.Fields, catalog.FieldSchema{
			Name:    field.Name(),
			Type:    hiveType,
			Comment: field.Doc(),
		})
	}
	return schema, nil
}

// withMetadataFields prepends the Hudi bookkeeping columns when the schema
// does not already carry them.
func withMetadataFields(schema catalog.Schema) catalog.Schema {
	present := make(map[string]bool, len(schema.Fields))
	for _, f := range schema.Fields {
		present[f.Name] = true
	}

	var fields []catalog.FieldSchema
	for _, name := range metadataFields {
		if !present[name] {
			fields = append(fields, catalog.FieldSchema{Name: name, Type: "string"})
		}
	}
	schema.Fields = append(fields, schema.Fields...)
	return schema
}

func hiveType(s avro.Schema, supportTimestamp bool) (string, error) {
	switch sch := s.(type) {
	case *avro.PrimitiveSchema:
		return primitiveHiveType(sch, supportTimestamp)
	case *avro.FixedSchema:
		if logical := sch.Logical(); logical != nil && logical.Type() == avro.Decimal {
			return decimalHiveType(logical), nil
		}
		return "binary", nil
	case *avro.EnumSchema:
		return "string", nil
	case *avro.UnionSchema:
		return unionHiveType(sch, supportTimestamp)
	case *avro.ArraySchema:
		item, err := hiveType(sch.Items(), supportTimestamp)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("array<%s>", item), nil
	case *avro.MapSchema:
		value, err := hiveType(sch.Values(), supportTimestamp)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("map<string,%s>", value), nil
	case *avro.RecordSchema:
		return recordHiveType(sch, supportTimestamp)
	default:
		return "", fmt.Errorf("unsupported avro type %s", s.Type())
	}
}

func primitiveHiveType(s *avro.PrimitiveSchema, supportTimestamp bool) (string, error) {
	if logical := s.Logical(); logical != nil {
		switch logical.Type() {
		case avro.Decimal:
			return decimalHiveType(logical), nil
		case avro.Date:
			return "date", nil
		case avro.TimestampMillis, avro.TimestampMicros:
			if supportTimestamp {
				return "timestamp", nil
			}
			return "bigint", nil
		}
	}

	switch s.Type() {
	case avro.String:
		return "string", nil
	case avro.Int:
		return "int", nil
	case avro.Long:
		return "bigint", nil
	case avro.Float:
		return "float", nil
	case avro.Double:
		return "double", nil
	case avro.Boolean:
		return "boolean", nil
	case avro.Bytes:
		return "binary", nil
	default:
		return "", fmt.Errorf("unsupported avro primitive %s", s.Type())
	}
}

// unionHiveType unwraps nullable unions; anything else is not representable.
func unionHiveType(s *avro.UnionSchema, supportTimestamp bool) (string, error) {
	var nonNull []avro.Schema
	for _, t := range s.Types() {
		if t.Type() != avro.Null {
			nonNull = append(nonNull, t)
		}
	}
	if len(nonNull) != 1 {
		return "", fmt.Errorf("union with %d non-null branches", len(nonNull))
	}
	return hiveType(nonNull[0], supportTimestamp)
}

func recordHiveType(s *avro.RecordSchema, supportTimestamp bool) (string, error) {
	parts := make([]string, 0, len(s.Fields()))
	for _, field := range s.Fields() {
		inner, err := hiveType(field.Type(), supportTimestamp)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s:%s", field.Name(), inner))
	}
	return fmt.Sprintf("struct<%s>", strings.Join(parts, ",")), nil
}

func decimalHiveType(logical avro.LogicalSchema) string {
	if dec, ok := logical.(*avro.DecimalLogicalSchema); ok {
		return fmt.Sprintf("decimal(%d,%d)", dec.Precision(), dec.Scale())
	}
	return "decimal(10,0)"
}
