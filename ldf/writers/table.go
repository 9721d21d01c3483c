package writers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/wbrown/janus-ldf/ldf/sparql"
)

// TableWriter renders rows as a markdown table. The table is rendered on
// Flush, so it holds every row in memory.
type TableWriter struct {
	// MaxWidth is the maximum width for a cell
	MaxWidth int
	// TruncateString is appended to truncated cells
	TruncateString string

	out       io.Writer
	variables []string
	rows      [][]string
	boolean   *bool
}

// NewTableWriter creates a table writer with default settings.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{MaxWidth: 50, TruncateString: "…", out: w}
}

func (t *TableWriter) WriteHead(variables []string) error {
	t.variables = variables
	return nil
}

func (t *TableWriter) WriteRow(row sparql.Row) error {
	cells := make([]string, len(t.variables))
	for i, v := range t.variables {
		cells[i] = t.truncate(row[v])
	}
	t.rows = append(t.rows, cells)
	return nil
}

func (t *TableWriter) WriteBoolean(value bool) error {
	t.boolean = &value
	return nil
}

func (t *TableWriter) truncate(value string) string {
	if t.MaxWidth <= 0 || len([]rune(value)) <= t.MaxWidth {
		return value
	}
	keep := t.MaxWidth - len([]rune(t.TruncateString))
	if keep < 0 {
		keep = 0
	}
	return string([]rune(value)[:keep]) + t.TruncateString
}

func (t *TableWriter) Flush() error {
	if t.boolean != nil {
		_, err := io.WriteString(t.out, strconv.FormatBool(*t.boolean)+"\n")
		return err
	}
	if len(t.rows) == 0 {
		_, err := fmt.Fprintf(t.out, "_Columns: %s_\n\n_No results_\n", strings.Join(t.variables, ", "))
		return err
	}

	alignment := make([]tw.Align, len(t.variables))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}
	table := tablewriter.NewTable(t.out,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(t.variables)
	for _, row := range t.rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	suffix := "s"
	if len(t.rows) == 1 {
		suffix = ""
	}
	_, err := fmt.Fprintf(t.out, "\n_%d result%s_\n", len(t.rows), suffix)
	return err
}
