package output

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Table struct {
	out        io.Writer
	headers    []string
	rows       [][]string
	rightAlign map[int]bool
	quiet      bool
}

func NewTable(out io.Writer, headers []string, quiet bool) *Table {
	return &Table{
		out:        out,
		headers:    headers,
		rightAlign: make(map[int]bool),
		quiet:      quiet,
	}
}

func (t *Table) Append(row []string) {
	t.rows = append(t.rows, row)
}

// AlignRight right-aligns the zero-based column col.
func (t *Table) AlignRight(col int) {
	t.rightAlign[col] = true
}

func (t *Table) Render() {
	if t.quiet || len(t.headers) == 0 {
		return
	}
	columns := len(t.headers)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range t.rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if t.rightAlign[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	fmt.Fprintln(t.out, tw.Render())
}
