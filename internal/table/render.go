package table

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// nullText is how Render prints a null cell
const nullText = "<null>"

// Render writes t as aligned text: a header row followed by one line per row
func Render(w io.Writer, t *Table) error {
	if err := requireTable("Render", t); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(t.Columns(), "\t")); err != nil {
		return err
	}

	cells := make([]string, t.Width())
	for r := 0; r < t.Len(); r++ {
		for i, col := range t.columns {
			if col.IsNull(r) {
				cells[i] = nullText
				continue
			}
			cells[i] = col.GetAsString(r)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
