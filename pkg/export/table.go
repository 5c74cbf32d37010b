package export

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/kilianp07/gridbalance/core/model"
)

// WriteTable renders the result rows as an aligned text table.
func WriteTable(w io.Writer, res model.Result) error {
	header, records, err := Table(res)
	if err != nil {
		return err
	}
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
	}))
	table.Header(header)
	for _, r := range records {
		if err := table.Append(r); err != nil {
			return err
		}
	}
	return table.Render()
}
