package output

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Table collects articles and renders them as a console table on Close.
type Table struct {
	w       io.WriteCloser
	t       table.Writer
	columns []string
	rows    int
}

// NewTable renders to w, which is closed by Close.
func NewTable(w io.WriteCloser, columns []string) *Table {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	header := table.Row{"#"}
	for _, c := range columns {
		header = append(header, c)
	}
	header = append(header, "url")
	t.AppendHeader(header)
	t.SetStyle(table.StyleRounded)
	return &Table{w: w, t: t, columns: columns}
}

func (t *Table) Write(a Article) error {
	row := table.Row{a.Counter}
	for _, c := range t.columns {
		row = append(row, cell(a.Joined(c)))
	}
	row = append(row, a.URL)
	t.t.AppendRow(row)
	t.rows++
	return nil
}

func (t *Table) Close() error {
	t.t.AppendFooter(table.Row{"total", t.rows})
	t.t.Render()
	return t.w.Close()
}
