package glue

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsglue "github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/config"
	"github.com/TFMV/gluesync/hudi"
)

var _ catalog.SyncClient = (*Catalog)(nil)

// fakeAPI implements API with overridable behaviors and records every
// batch-mutation input it receives.
type fakeAPI struct {
	getDatabaseFn    func(*awsglue.GetDatabaseInput) (*awsglue.GetDatabaseOutput, error)
	createDatabaseFn func(*awsglue.CreateDatabaseInput) (*awsglue.CreateDatabaseOutput, error)
	getTableFn       func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error)
	createTableFn    func(*awsglue.CreateTableInput) (*awsglue.CreateTableOutput, error)
	updateTableFn    func(*awsglue.UpdateTableInput) (*awsglue.UpdateTableOutput, error)
	getPartitionsFn  func(*awsglue.GetPartitionsInput) (*awsglue.GetPartitionsOutput, error)
	batchCreateFn    func(*awsglue.BatchCreatePartitionInput) (*awsglue.BatchCreatePartitionOutput, error)
	batchUpdateFn    func(*awsglue.BatchUpdatePartitionInput) (*awsglue.BatchUpdatePartitionOutput, error)
	batchDeleteFn    func(*awsglue.BatchDeletePartitionInput) (*awsglue.BatchDeletePartitionOutput, error)

	getTableCalls    int
	updateTableCalls []*awsglue.UpdateTableInput
	batchCreateCalls []*awsglue.BatchCreatePartitionInput
	batchUpdateCalls []*awsglue.BatchUpdatePartitionInput
	batchDeleteCalls []*awsglue.BatchDeletePartitionInput
}

func (f *fakeAPI) GetDatabase(_ context.Context, in *awsglue.GetDatabaseInput, _ ...func(*awsglue.Options)) (*awsglue.GetDatabaseOutput, error) {
	if f.getDatabaseFn != nil {
		return f.getDatabaseFn(in)
	}
	return &awsglue.GetDatabaseOutput{Database: &types.Database{Name: in.Name}}, nil
}

func (f *fakeAPI) CreateDatabase(_ context.Context, in *awsglue.CreateDatabaseInput, _ ...func(*awsglue.Options)) (*awsglue.CreateDatabaseOutput, error) {
	if f.createDatabaseFn != nil {
		return f.createDatabaseFn(in)
	}
	return &awsglue.CreateDatabaseOutput{}, nil
}

func (f *fakeAPI) GetTable(_ context.Context, in *awsglue.GetTableInput, _ ...func(*awsglue.Options)) (*awsglue.GetTableOutput, error) {
	f.getTableCalls++
	if f.getTableFn != nil {
		return f.getTableFn(in)
	}
	return &awsglue.GetTableOutput{Table: testTable()}, nil
}

func (f *fakeAPI) CreateTable(_ context.Context, in *awsglue.CreateTableInput, _ ...func(*awsglue.Options)) (*awsglue.CreateTableOutput, error) {
	if f.createTableFn != nil {
		return f.createTableFn(in)
	}
	return &awsglue.CreateTableOutput{}, nil
}

func (f *fakeAPI) UpdateTable(_ context.Context, in *awsglue.UpdateTableInput, _ ...func(*awsglue.Options)) (*awsglue.UpdateTableOutput, error) {
	f.updateTableCalls = append(f.updateTableCalls, in)
	if f.updateTableFn != nil {
		return f.updateTableFn(in)
	}
	return &awsglue.UpdateTableOutput{}, nil
}

func (f *fakeAPI) GetPartitions(_ context.Context, in *awsglue.GetPartitionsInput, _ ...func(*awsglue.Options)) (*awsglue.GetPartitionsOutput, error) {
	if f.getPartitionsFn != nil {
		return f.getPartitionsFn(in)
	}
	return &awsglue.GetPartitionsOutput{}, nil
}

func (f *fakeAPI) BatchCreatePartition(_ context.Context, in *awsglue.BatchCreatePartitionInput, _ ...func(*awsglue.Options)) (*awsglue.BatchCreatePartitionOutput, error) {
	f.batchCreateCalls = append(f.batchCreateCalls, in)
	if f.batchCreateFn != nil {
		return f.batchCreateFn(in)
	}
	return &awsglue.BatchCreatePartitionOutput{}, nil
}

func (f *fakeAPI) BatchUpdatePartition(_ context.Context, in *awsglue.BatchUpdatePartitionInput, _ ...func(*awsglue.Options)) (*awsglue.BatchUpdatePartitionOutput, error) {
	f.batchUpdateCalls = append(f.batchUpdateCalls, in)
	if f.batchUpdateFn != nil {
		return f.batchUpdateFn(in)
	}
	return &awsglue.BatchUpdatePartitionOutput{}, nil
}

func (f *fakeAPI) BatchDeletePartition(_ context.Context, in *awsglue.BatchDeletePartitionInput, _ ...func(*awsglue.Options)) (*awsglue.BatchDeletePartitionOutput, error) {
	f.batchDeleteCalls = append(f.batchDeleteCalls, in)
	if f.batchDeleteFn != nil {
		return f.batchDeleteFn(in)
	}
	return &awsglue.BatchDeletePartitionOutput{}, nil
}

type fakeMeta struct {
	instant catalog.Instant
	hasLast bool
	schema  catalog.Schema
}

func (m *fakeMeta) LastInstant() (catalog.Instant, bool) { return m.instant, m.hasLast }

func (m *fakeMeta) TableSchema(bool) (catalog.Schema, error) { return m.schema, nil }

func testTable() *types.Table {
	return &types.Table{
		Name:      aws.String("trips"),
		TableType: aws.String("EXTERNAL_TABLE"),
		Parameters: map[string]string{
			"EXTERNAL": "TRUE",
		},
		PartitionKeys: []types.Column{
			{Name: aws.String("date"), Type: aws.String("string"), Comment: aws.String("")},
		},
		StorageDescriptor: &types.StorageDescriptor{
			Location:     aws.String("s3://bucket/tables/trips"),
			InputFormat:  aws.String(catalog.ParquetStorageFormat.InputFormat),
			OutputFormat: aws.String(catalog.ParquetStorageFormat.OutputFormat),
			Columns: []types.Column{
				{Name: aws.String("id"), Type: aws.String("bigint"), Comment: aws.String("")},
				{Name: aws.String("fare"), Type: aws.String("double"), Comment: aws.String("")},
			},
			SerdeInfo: &types.SerDeInfo{
				SerializationLibrary: aws.String(catalog.ParquetStorageFormat.SerdeClass),
				Parameters:           map[string]string{"serialization.format": "1"},
			},
		},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Name: "test",
		Catalog: config.CatalogConfig{
			Type: "glue",
			Glue: &config.GlueConfig{Region: "us-east-1"},
		},
		Table: config.TableConfig{
			Database:        "warehouse",
			Name:            "trips",
			BasePath:        "s3a://bucket/tables/trips",
			PartitionFields: []string{"date"},
		},
		Sync: config.SyncConfig{
			SkipTableArchive:    true,
			MetadataFileListing: true,
		},
	}
}

func testCatalog(api API) *Catalog {
	return New(api, testConfig(), &fakeMeta{}, hudi.NewMultiPartKeysValueExtractor(), WithBatchSleep(0))
}

func notFoundErr() error {
	return &types.EntityNotFoundException{Message: aws.String("not found")}
}

func TestTableExists(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	exists, err := c.TableExists(context.Background(), "trips")
	require.NoError(t, err)
	assert.True(t, exists)

	api.getTableFn = func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
		return nil, notFoundErr()
	}
	exists, err = c.TableExists(context.Background(), "trips")
	require.NoError(t, err)
	assert.False(t, exists)

	api.getTableFn = func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
		return nil, errors.New("throttled")
	}
	_, err = c.TableExists(context.Background(), "trips")
	require.Error(t, err)
	var syncErr *catalog.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "warehouse", syncErr.Database)
	assert.Equal(t, "trips", syncErr.Table)
}

func TestDatabaseExists(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	exists, err := c.DatabaseExists(context.Background(), "warehouse")
	require.NoError(t, err)
	assert.True(t, exists)

	api.getDatabaseFn = func(*awsglue.GetDatabaseInput) (*awsglue.GetDatabaseOutput, error) {
		return nil, notFoundErr()
	}
	exists, err = c.DatabaseExists(context.Background(), "warehouse")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateDatabaseIdempotent(t *testing.T) {
	created := 0
	api := &fakeAPI{
		createDatabaseFn: func(*awsglue.CreateDatabaseInput) (*awsglue.CreateDatabaseOutput, error) {
			created++
			return &awsglue.CreateDatabaseOutput{}, nil
		},
	}
	c := testCatalog(api)

	// Database reported existing: no create call at all.
	require.NoError(t, c.CreateDatabase(context.Background(), "warehouse"))
	assert.Equal(t, 0, created)

	// Absent database gets created; a lost race is swallowed.
	api.getDatabaseFn = func(*awsglue.GetDatabaseInput) (*awsglue.GetDatabaseOutput, error) {
		return nil, notFoundErr()
	}
	require.NoError(t, c.CreateDatabase(context.Background(), "warehouse"))
	assert.Equal(t, 1, created)

	api.createDatabaseFn = func(*awsglue.CreateDatabaseInput) (*awsglue.CreateDatabaseOutput, error) {
		return nil, &types.AlreadyExistsException{Message: aws.String("race")}
	}
	require.NoError(t, c.CreateDatabase(context.Background(), "warehouse"))
}

func TestCreateTableSkipsExisting(t *testing.T) {
	createCalls := 0
	api := &fakeAPI{
		createTableFn: func(*awsglue.CreateTableInput) (*awsglue.CreateTableOutput, error) {
			createCalls++
			return &awsglue.CreateTableOutput{}, nil
		},
	}
	c := testCatalog(api)

	err := c.CreateTable(context.Background(), "trips", nil, catalog.ParquetStorageFormat, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, createCalls)
}

func TestCreateTable(t *testing.T) {
	var input *awsglue.CreateTableInput
	api := &fakeAPI{
		getTableFn: func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
			return nil, notFoundErr()
		},
		createTableFn: func(in *awsglue.CreateTableInput) (*awsglue.CreateTableOutput, error) {
			input = in
			return &awsglue.CreateTableOutput{}, nil
		},
	}
	c := testCatalog(api)

	schema := []catalog.FieldSchema{
		{Name: "id", Type: "bigint"},
		{Name: "fare", Type: "DOUBLE"},
		{Name: "date", Type: "string"},
	}
	serdeProps := map[string]string{"path": "s3://bucket/tables/trips"}
	tableProps := map[string]string{"owner": "etl"}

	err := c.CreateTable(context.Background(), "trips", schema, catalog.ParquetStorageFormat, serdeProps, tableProps)
	require.NoError(t, err)
	require.NotNil(t, input)

	ti := input.TableInput
	assert.Equal(t, "trips", aws.ToString(ti.Name))
	assert.Equal(t, "EXTERNAL_TABLE", aws.ToString(ti.TableType))
	assert.Equal(t, "TRUE", ti.Parameters["EXTERNAL"])
	assert.Equal(t, "TRUE", ti.Parameters[catalog.MetadataListingKey])
	assert.Equal(t, "etl", ti.Parameters["owner"])

	// Partition key split: date is a partition key, not a column.
	require.Len(t, ti.StorageDescriptor.Columns, 2)
	assert.Equal(t, "id", aws.ToString(ti.StorageDescriptor.Columns[0].Name))
	assert.Equal(t, "double", aws.ToString(ti.StorageDescriptor.Columns[1].Type))
	require.Len(t, ti.PartitionKeys, 1)
	assert.Equal(t, "date", aws.ToString(ti.PartitionKeys[0].Name))
	assert.Equal(t, "string", aws.ToString(ti.PartitionKeys[0].Type))

	assert.Equal(t, "s3://bucket/tables/trips", aws.ToString(ti.StorageDescriptor.Location))
	assert.Equal(t, "1", ti.StorageDescriptor.SerdeInfo.Parameters["serialization.format"])
	// The caller's serde map is merged, not mutated.
	assert.Equal(t, "s3://bucket/tables/trips", ti.StorageDescriptor.SerdeInfo.Parameters["path"])
	_, mutated := serdeProps["serialization.format"]
	assert.False(t, mutated)
}

func TestCreateTableAlreadyExistsRace(t *testing.T) {
	api := &fakeAPI{
		getTableFn: func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
			return nil, notFoundErr()
		},
		createTableFn: func(*awsglue.CreateTableInput) (*awsglue.CreateTableOutput, error) {
			return nil, &types.AlreadyExistsException{Message: aws.String("race")}
		},
	}
	c := testCatalog(api)

	err := c.CreateTable(context.Background(), "trips", nil, catalog.ParquetStorageFormat, nil, nil)
	require.NoError(t, err)
}

func TestUpdateTableSchema(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	schema := []catalog.FieldSchema{
		{Name: "id", Type: "bigint"},
		{Name: "fare", Type: "double"},
		{Name: "tip", Type: "double"},
		{Name: "date", Type: "string"},
	}
	require.NoError(t, c.UpdateTableSchema(context.Background(), "trips", schema))

	require.Len(t, api.updateTableCalls, 1)
	in := api.updateTableCalls[0]
	assert.True(t, aws.ToBool(in.SkipArchive))
	require.Len(t, in.TableInput.StorageDescriptor.Columns, 3)
	assert.Equal(t, "tip", aws.ToString(in.TableInput.StorageDescriptor.Columns[2].Name))
	// Partition keys are carried through unchanged.
	require.Len(t, in.TableInput.PartitionKeys, 1)
	assert.Equal(t, "date", aws.ToString(in.TableInput.PartitionKeys[0].Name))
	assert.Equal(t, "TRUE", in.TableInput.Parameters["EXTERNAL"])
}

func TestUpdateTableCommentsNoChange(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	// Storage comments match the catalog's (all empty), so nothing is written.
	fromStorage := []catalog.FieldSchema{
		{Name: "id", Type: "bigint"},
		{Name: "fare", Type: "double"},
	}
	changed, err := c.UpdateTableComments(context.Background(), "trips", nil, fromStorage)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, api.updateTableCalls)
}

func TestUpdateTableCommentsApplied(t *testing.T) {
	api := &fakeAPI{}
	meta := &fakeMeta{schema: catalog.Schema{Doc: "trip records"}}
	c := New(api, testConfig(), meta, hudi.NewMultiPartKeysValueExtractor(), WithBatchSleep(0))

	fromStorage := []catalog.FieldSchema{
		{Name: "id", Type: "bigint", Comment: "trip id"},
		{Name: "fare", Type: "double"},
		{Name: "date", Type: "string", Comment: "service date"},
	}
	changed, err := c.UpdateTableComments(context.Background(), "trips", nil, fromStorage)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Len(t, api.updateTableCalls, 1)
	ti := api.updateTableCalls[0].TableInput
	assert.Equal(t, "trip records", aws.ToString(ti.Description))
	assert.Equal(t, "trip id", aws.ToString(ti.StorageDescriptor.Columns[0].Comment))
	assert.Nil(t, ti.StorageDescriptor.Columns[1].Comment)
	assert.Equal(t, "service date", aws.ToString(ti.PartitionKeys[0].Comment))
}

func TestMetastoreSchema(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	schema, err := c.MetastoreSchema(context.Background(), "trips")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"id":   "BIGINT",
		"fare": "DOUBLE",
		"date": "STRING",
	}, schema)
}

func TestAllPartitionsPaginated(t *testing.T) {
	pages := map[string]*awsglue.GetPartitionsOutput{
		"": {
			Partitions: []types.Partition{
				{Values: []string{"2024-01-01"}, StorageDescriptor: &types.StorageDescriptor{Location: aws.String("s3://bucket/tables/trips/date=2024-01-01")}},
			},
			NextToken: aws.String("page2"),
		},
		"page2": {
			Partitions: []types.Partition{
				{Values: []string{"2024-01-02"}, StorageDescriptor: &types.StorageDescriptor{Location: aws.String("s3://bucket/tables/trips/date=2024-01-02")}},
			},
		},
	}
	api := &fakeAPI{
		getPartitionsFn: func(in *awsglue.GetPartitionsInput) (*awsglue.GetPartitionsOutput, error) {
			return pages[aws.ToString(in.NextToken)], nil
		},
	}
	c := testCatalog(api)

	partitions, err := c.AllPartitions(context.Background(), "trips")
	require.NoError(t, err)
	require.Len(t, partitions, 2)
	assert.Equal(t, []string{"2024-01-01"}, partitions[0].Values)
	assert.Equal(t, "s3://bucket/tables/trips/date=2024-01-02", partitions[1].Location)
}

func TestLastCommitTimeSynced(t *testing.T) {
	api := &fakeAPI{}
	c := testCatalog(api)

	_, ok, err := c.LastCommitTimeSynced(context.Background(), "trips")
	require.NoError(t, err)
	assert.False(t, ok)

	api.getTableFn = func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
		tbl := testTable()
		tbl.Parameters[catalog.LastCommitTimeSyncedKey] = "20240101120000"
		return &awsglue.GetTableOutput{Table: tbl}, nil
	}
	v, ok, err := c.LastCommitTimeSynced(context.Background(), "trips")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "20240101120000", v)
}

func TestUpdateLastCommitTimeSynced(t *testing.T) {
	api := &fakeAPI{}
	meta := &fakeMeta{}
	c := New(api, testConfig(), meta, hudi.NewMultiPartKeysValueExtractor(), WithBatchSleep(0))

	// Empty timeline: logged, no remote call.
	require.NoError(t, c.UpdateLastCommitTimeSynced(context.Background(), "trips"))
	assert.Equal(t, 0, api.getTableCalls)

	meta.instant = catalog.Instant{Timestamp: "20240102090000", Action: "commit"}
	meta.hasLast = true
	require.NoError(t, c.UpdateLastCommitTimeSynced(context.Background(), "trips"))
	require.Len(t, api.updateTableCalls, 1)
	params := api.updateTableCalls[0].TableInput.Parameters
	assert.Equal(t, "20240102090000", params[catalog.LastCommitTimeSyncedKey])
	// Untouched parameters survive the full-replace update.
	assert.Equal(t, "TRUE", params["EXTERNAL"])
}

func TestUpdateTablePropertiesNoOp(t *testing.T) {
	api := &fakeAPI{
		getTableFn: func(*awsglue.GetTableInput) (*awsglue.GetTableOutput, error) {
			tbl := testTable()
			tbl.Parameters[catalog.MetadataListingKey] = "TRUE"
			tbl.Parameters["owner"] = "etl"
			return &awsglue.GetTableOutput{Table: tbl}, nil
		},
	}
	c := testCatalog(api)

	// Empty input returns without touching the catalog.
	changed, err := c.UpdateTableProperties(context.Background(), "trips", nil)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 0, api.getTableCalls)

	changed, err = c.UpdateTableProperties(context.Background(), "trips", map[string]string{"owner": "etl"})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, api.updateTableCalls)

	// A differing value forces one write with a left-biased merge.
	changed, err = c.UpdateTableProperties(context.Background(), "trips", map[string]string{"owner": "analytics"})
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, api.updateTableCalls, 1)
	params := api.updateTableCalls[0].TableInput.Parameters
	assert.Equal(t, "analytics", params["owner"])
	assert.Equal(t, "TRUE", params["EXTERNAL"])
}

func TestReplicationTimestampsUnsupported(t *testing.T) {
	c := testCatalog(&fakeAPI{})
	ctx := context.Background()

	_, err := c.LastReplicatedTime(ctx, "trips")
	assert.ErrorIs(t, err, catalog.ErrUnsupported)
	assert.ErrorIs(t, c.UpdateLastReplicatedTimestamp(ctx, "trips", "t"), catalog.ErrUnsupported)
	assert.ErrorIs(t, c.DeleteLastReplicatedTimestamp(ctx, "trips"), catalog.ErrUnsupported)
}

func TestS3aToS3(t *testing.T) {
	assert.Equal(t, "s3://bucket/path", s3aToS3("s3a://bucket/path"))
	assert.Equal(t, "s3://bucket/path", s3aToS3("s3://bucket/path"))
	assert.Equal(t, "file:///tmp/table", s3aToS3("file:///tmp/table"))
}
