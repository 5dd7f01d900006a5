package audit

import (
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/d9705996/researchbridge/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteTable renders events as a plain-text table, one row per event.
func WriteTable(w io.Writer, events []model.AuditLog) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Time", "Action", "Entity", "Entity ID", "Actor", "Details"})
	for _, e := range events {
		tw.AppendRow(table.Row{
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Action,
			e.EntityType,
			e.EntityID,
			e.ActorID,
			formatDetails(e.Details),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "total", len(events)})
	tw.Render()
}

func formatDetails(d model.StringMap) string {
	keys := slices.Sorted(maps.Keys(d))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+d[k])
	}
	return strings.Join(parts, " ")
}
