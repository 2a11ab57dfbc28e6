package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"pogorarity-backend/services/selection"

	"github.com/jedib0t/go-pretty/v6/table"
)

func sortedIds(snapshot selection.Snapshot) []string {
	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// WriteCSV writes the snapshot as csv rows sorted by entity id.
func WriteCSV(w io.Writer, snapshot selection.Snapshot) error {
	cw := csv.NewWriter(w)
	err := cw.Write([]string{"entity_id", "caught", "favorite", "updated_at"})
	if err != nil {
		return err
	}
	for _, id := range sortedIds(snapshot) {
		r := snapshot[id]
		err = cw.Write([]string{
			id,
			strconv.FormatBool(r.Caught),
			strconv.FormatBool(r.Favorite),
			r.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RenderTable prints the snapshot as a terminal table with the
// committed version in the footer.
func RenderTable(w io.Writer, snapshot selection.Snapshot, version int64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Entity", "Caught", "Favorite", "Updated"})

	for _, id := range sortedIds(snapshot) {
		r := snapshot[id]
		t.AppendRow(table.Row{
			id,
			checkmark(r.Caught),
			checkmark(r.Favorite),
			r.UpdatedAt.UTC().Format(time.DateTime),
		})
	}
	t.AppendFooter(table.Row{"version", version})

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func checkmark(b bool) string {
	if b {
		return "x"
	}
	return ""
}
