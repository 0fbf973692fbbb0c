package hudi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/fs"
)

// MetaFolder is the directory under the table base path that holds the
// commit timeline and table properties.
const MetaFolder = ".hoodie"

// PropertiesFile holds the table's persistent configuration.
const PropertiesFile = "hoodie.properties"

// completedActions are the instant extensions that mark a finished write.
// Inflight and requested markers carry extra extensions and never match.
var completedActions = map[string]struct{}{
	"commit":        {},
	"deltacommit":   {},
	"replacecommit": {},
}

// Timeline is the ordered list of completed write instants for a table.
type Timeline struct {
	instants []catalog.Instant
}

// LoadTimeline scans the meta folder for completed instants, ordered by
// timestamp.
func LoadTimeline(fsys fs.FileSystem) (*Timeline, error) {
	entries, err := fsys.List(MetaFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}

	var instants []catalog.Instant
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		instant, ok := parseInstant(entry.Name)
		if !ok {
			continue
		}
		instants = append(instants, instant)
	}

	sort.Slice(instants, func(i, j int) bool {
		return instants[i].Timestamp < instants[j].Timestamp
	})
	return &Timeline{instants: instants}, nil
}

// LastInstant returns the most recent completed instant, if any.
func (t *Timeline) LastInstant() (catalog.Instant, bool) {
	if len(t.instants) == 0 {
		return catalog.Instant{}, false
	}
	return t.instants[len(t.instants)-1], true
}

// Instants returns all completed instants in timestamp order.
func (t *Timeline) Instants() []catalog.Instant {
	return t.instants
}

// parseInstant interprets a timeline file name like "20240101120000.commit".
// Names with additional state extensions (".commit.requested",
// ".deltacommit.inflight") are incomplete and are skipped.
func parseInstant(name string) (catalog.Instant, bool) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" {
		return catalog.Instant{}, false
	}
	if _, ok := completedActions[parts[1]]; !ok {
		return catalog.Instant{}, false
	}
	// Hudi 1.x names completed instants "<request>_<completion>.<action>";
	// the request time is the commit time being tracked.
	timestamp := parts[0]
	if idx := strings.Index(timestamp, "_"); idx >= 0 {
		timestamp = timestamp[:idx]
	}
	return catalog.Instant{Timestamp: timestamp, Action: parts[1]}, true
}
