package hudi

import (
	"fmt"
	"strings"
)

// MultiPartKeysValueExtractor parses hive-style partition paths such as
// "year=2023/month=05/day=01" into their ordered values.
type MultiPartKeysValueExtractor struct{}

// NewMultiPartKeysValueExtractor creates an extractor for hive-style paths.
func NewMultiPartKeysValueExtractor() *MultiPartKeysValueExtractor {
	return &MultiPartKeysValueExtractor{}
}

// ExtractPartitionValues returns one value per path segment, stripping the
// "key=" prefix when present.
func (e *MultiPartKeysValueExtractor) ExtractPartitionValues(relativePath string) ([]string, error) {
	trimmed := strings.Trim(relativePath, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("partition path is empty")
	}

	segments := strings.Split(trimmed, "/")
	values := make([]string, 0, len(segments))
	for _, seg := range segments {
		if idx := strings.Index(seg, "="); idx >= 0 {
			values = append(values, seg[idx+1:])
		} else {
			values = append(values, seg)
		}
	}
	return values, nil
}

// SlashEncodedDayValueExtractor parses date partition paths of the form
// "yyyy/mm/dd" into a single "yyyy-mm-dd" value.
type SlashEncodedDayValueExtractor struct{}

// NewSlashEncodedDayValueExtractor creates an extractor for yyyy/mm/dd paths.
func NewSlashEncodedDayValueExtractor() *SlashEncodedDayValueExtractor {
	return &SlashEncodedDayValueExtractor{}
}

// ExtractPartitionValues converts "yyyy/mm/dd" into ["yyyy-mm-dd"].
func (e *SlashEncodedDayValueExtractor) ExtractPartitionValues(relativePath string) ([]string, error) {
	segments := strings.Split(strings.Trim(relativePath, "/"), "/")
	if len(segments) != 3 {
		return nil, fmt.Errorf("partition path %q is not of the form yyyy/mm/dd", relativePath)
	}
	return []string{fmt.Sprintf("%s-%s-%s", segments[0], segments[1], segments[2])}, nil
}
