package report

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/ademuri/spotify-report/internal/aggregate"
)

const unknown = "(unknown)"

// displayRecords is Records with empty key values shown as "(unknown)".
func displayRecords(t aggregate.Table) [][]string {
	records := t.Records()
	for _, rec := range records[1:] {
		for i := 0; i < len(t.Keys); i++ {
			if rec[i] == "" {
				rec[i] = unknown
			}
		}
	}
	return records
}

// FormatTable renders a table for the terminal, followed by summary when it
// is not empty.
func FormatTable(t aggregate.Table, summary string) string {
	records := displayRecords(t)

	out := new(bytes.Buffer)
	table := tablewriter.NewWriter(out)
	table.Header(records[0])
	for _, row := range records[1:] {
		if err := table.Append(row); err != nil {
			return fmt.Sprintf("Error rendering table: %v", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Sprintf("Error rendering table: %v", err)
	}
	if summary != "" {
		fmt.Fprintf(out, "%s\n", summary)
	}
	return out.String()
}
