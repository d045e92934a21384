package storage

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"realclear-polls/models"
)

// TableWriter prints datasets as terminal tables.
type TableWriter struct {
	out   io.Writer
	limit int
}

// NewTableWriter prints to out, showing at most limit rows per dataset
// (0 means all rows).
func NewTableWriter(out io.Writer, limit int) *TableWriter {
	return &TableWriter{out: out, limit: limit}
}

func (w *TableWriter) Write(ds *models.Dataset) error {
	t := table.NewWriter()
	t.SetOutputMirror(w.out)
	if ds.Source != "" {
		t.SetTitle(ds.Source)
	}

	header := table.Row{}
	for _, name := range ds.Names() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	n := ds.Len()
	if w.limit > 0 && n > w.limit {
		n = w.limit
	}
	for i := 0; i < n; i++ {
		row := table.Row{}
		for _, cell := range ds.Row(i) {
			row = append(row, cell)
		}
		t.AppendRow(row)
	}
	if n < ds.Len() {
		t.AppendFooter(table.Row{"...", ds.Len() - n})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func (w *TableWriter) Close() error { return nil }
