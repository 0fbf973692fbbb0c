package hudi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tripSchema = `{
	"type": "record",
	"name": "trip",
	"doc": "yellow cab trips",
	"fields": [
		{"name": "id", "type": "string", "doc": "trip id"},
		{"name": "distance", "type": "double"},
		{"name": "passengers", "type": "int"},
		{"name": "fare", "type": ["null", {"type": "bytes", "logicalType": "decimal", "precision": 10, "scale": 2}]},
		{"name": "pickup_ts", "type": {"type": "long", "logicalType": "timestamp-micros"}},
		{"name": "pickup_date", "type": {"type": "int", "logicalType": "date"}},
		{"name": "tags", "type": {"type": "array", "items": "string"}},
		{"name": "attributes", "type": {"type": "map", "values": "long"}},
		{"name": "location", "type": {"type": "record", "name": "point", "fields": [
			{"name": "lat", "type": "double"},
			{"name": "lon", "type": "double"}
		]}}
	]
}`

func TestSchemaFromAvro(t *testing.T) {
	schema, err := schemaFromAvro(tripSchema, false)
	require.NoError(t, err)

	assert.Equal(t, "yellow cab trips", schema.Doc)

	types := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		types[f.Name] = f.Type
	}
	assert.Equal(t, "string", types["id"])
	assert.Equal(t, "double", types["distance"])
	assert.Equal(t, "int", types["passengers"])
	assert.Equal(t, "decimal(10,2)", types["fare"])
	assert.Equal(t, "bigint", types["pickup_ts"])
	assert.Equal(t, "date", types["pickup_date"])
	assert.Equal(t, "array<string>", types["tags"])
	assert.Equal(t, "map<string,bigint>", types["attributes"])
	assert.Equal(t, "struct<lat:double,lon:double>", types["location"])

	assert.Equal(t, "id", schema.Fields[0].Name)
	assert.Equal(t, "trip id", schema.Fields[0].Comment)
}

func TestSchemaFromAvroTimestampSupport(t *testing.T) {
	schema, err := schemaFromAvro(tripSchema, true)
	require.NoError(t, err)

	for _, f := range schema.Fields {
		if f.Name == "pickup_ts" {
			assert.Equal(t, "timestamp", f.Type)
			return
		}
	}
	t.Fatal("pickup_ts not found")
}

func TestSchemaFromAvroRejectsNonRecord(t *testing.T) {
	_, err := schemaFromAvro(`"string"`, false)
	assert.Error(t, err)
}

func TestWithMetadataFields(t *testing.T) {
	schema := withMetadataFields(catalogSchema("id", "string"))

	require.Len(t, schema.Fields, 6)
	assert.Equal(t, "_hoodie_commit_time", schema.Fields[0].Name)
	assert.Equal(t, "string", schema.Fields[0].Type)
	assert.Equal(t, "id", schema.Fields[5].Name)
}

func TestWithMetadataFieldsIdempotent(t *testing.T) {
	once := withMetadataFields(catalogSchema("id", "string"))
	twice := withMetadataFields(once)
	assert.Equal(t, once.Fields, twice.Fields)
}
