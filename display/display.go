package display

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/TFMV/gluesync/catalog"
	"github.com/TFMV/gluesync/sync"
)

// Renderer writes sync results to the terminal.
type Renderer struct {
	plain bool
}

// NewRenderer creates a terminal renderer. Plain mode disables color and
// styling for non-interactive use.
func NewRenderer(plain bool) *Renderer {
	if plain {
		pterm.DisableStyling()
	}
	return &Renderer{plain: plain}
}

// Report renders the outcome of one sync run.
func (r *Renderer) Report(report *sync.Report) {
	pterm.DefaultSection.Printf("Sync %s", catalog.TableID(report.Database, report.Table))

	rows := pterm.TableData{
		{"Run", report.RunID},
		{"Table created", yesNo(report.TableCreated)},
		{"Schema updated", yesNo(report.SchemaUpdated)},
		{"Comments updated", yesNo(report.CommentsUpdated)},
		{"Partitions added", fmt.Sprintf("%d", len(report.PartitionsAdded))},
		{"Partitions updated", fmt.Sprintf("%d", len(report.PartitionsUpdated))},
		{"Partitions dropped", fmt.Sprintf("%d", len(report.PartitionsDropped))},
		{"Last commit synced", orDash(report.LastCommitSynced)},
		{"Duration", report.Duration.Round(time.Millisecond).String()},
	}
	if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
		fmt.Println(report)
	}

	r.partitionList("Added", report.PartitionsAdded)
	r.partitionList("Updated", report.PartitionsUpdated)
	r.partitionList("Dropped", report.PartitionsDropped)

	pterm.Success.Println("sync complete")
}

// Status renders the current catalog state of a table.
func (r *Renderer) Status(database, table string, exists bool, lastSynced string, partitions []catalog.Partition) {
	pterm.DefaultSection.Printf("Status %s", catalog.TableID(database, table))

	if !exists {
		pterm.Warning.Println("table is not registered in the catalog")
		return
	}

	rows := pterm.TableData{
		{"Registered", "yes"},
		{"Partitions", fmt.Sprintf("%d", len(partitions))},
		{"Last commit synced", orDash(lastSynced)},
	}
	if err := pterm.DefaultTable.WithData(rows).Render(); err != nil {
		fmt.Printf("registered, %d partitions, last synced %s\n", len(partitions), orDash(lastSynced))
	}
}

// Error renders a failure, unwrapping batch error details when present.
func (r *Renderer) Error(err error) {
	var syncErr *catalog.SyncError
	if errors.As(err, &syncErr) && len(syncErr.Errors) > 0 {
		pterm.Error.Println(err.Error())
		for _, e := range syncErr.Errors {
			pterm.Println("  " + e.String())
		}
		return
	}
	pterm.Error.Println(err.Error())
}

func (r *Renderer) partitionList(label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	pterm.Info.Printf("%s partitions:\n", label)
	for _, p := range paths {
		pterm.Println("  " + p)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
