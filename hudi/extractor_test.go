package hudi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiPartKeysValueExtractor(t *testing.T) {
	extractor := NewMultiPartKeysValueExtractor()

	values, err := extractor.ExtractPartitionValues("year=2023/month=05/day=01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "05", "01"}, values)
}

func TestMultiPartKeysValueExtractorSingleLevel(t *testing.T) {
	extractor := NewMultiPartKeysValueExtractor()

	values, err := extractor.ExtractPartitionValues("date=2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, values)
}

func TestMultiPartKeysValueExtractorBareSegments(t *testing.T) {
	extractor := NewMultiPartKeysValueExtractor()

	// Non-hive layouts carry the value directly in the segment.
	values, err := extractor.ExtractPartitionValues("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, values)
}

func TestMultiPartKeysValueExtractorEmptyPath(t *testing.T) {
	extractor := NewMultiPartKeysValueExtractor()

	_, err := extractor.ExtractPartitionValues("")
	assert.Error(t, err)
}

func TestSlashEncodedDayValueExtractor(t *testing.T) {
	extractor := NewSlashEncodedDayValueExtractor()

	values, err := extractor.ExtractPartitionValues("2023/05/01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-05-01"}, values)

	_, err = extractor.ExtractPartitionValues("2023/05")
	assert.Error(t, err)
}
