package export

import (
	"fmt"
	"io"

	"github.com/guptarohit/asciigraph"
	"github.com/samber/lo"

	"github.com/kilianp07/gridbalance/core/model"
)

// ChartOptions sizes the plots drawn by WriteChart.
type ChartOptions struct {
	Width  int
	Height int
}

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Green,
	asciigraph.DarkOrange,
	asciigraph.Magenta,
	asciigraph.LightBlue,
	asciigraph.Yellow,
	asciigraph.DarkRed,
}

func colors(n int) []asciigraph.AnsiColor {
	return lo.RepeatBy(n, func(i int) asciigraph.AnsiColor { return seriesColors[i%len(seriesColors)] })
}

// WriteChart plots the grid exchange and battery set-points, then the SoC
// trajectory of each battery.
func WriteChart(w io.Writer, res model.Result, opts ChartOptions) error {
	if len(res.Rows) == 0 {
		_, err := fmt.Fprintf(w, "no rows to plot (status %s)\n", res.Status)
		return err
	}
	if opts.Height <= 0 {
		opts.Height = 12
	}
	ids := lo.Map(res.Rows[0].Batteries, func(b model.BatteryOutput, _ int) string { return b.ID })

	power := [][]float64{
		lo.Map(res.Rows, func(r model.ResultRow, _ int) float64 { return r.PNetBeforeKW }),
		lo.Map(res.Rows, func(r model.ResultRow, _ int) float64 { return r.PNetAfterKW }),
	}
	powerSeries := []string{"Net before", "Net after"}
	var soc [][]float64
	for _, id := range ids {
		power = append(power, lo.Map(res.Rows, func(r model.ResultRow, _ int) float64 {
			b, _ := r.Battery(id)
			return b.PowerKW
		}))
		soc = append(soc, lo.Map(res.Rows, func(r model.ResultRow, _ int) float64 {
			b, _ := r.Battery(id)
			return b.SoCPercent
		}))
		powerSeries = append(powerSeries, id+" power")
	}

	if _, err := fmt.Fprintln(w, asciigraph.PlotMany(power,
		asciigraph.Precision(1),
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height),
		asciigraph.Caption("Power flow (kW)"),
		asciigraph.SeriesLegends(powerSeries...),
		asciigraph.SeriesColors(colors(len(power))...),
	)); err != nil {
		return err
	}
	if len(soc) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, asciigraph.PlotMany(soc,
		asciigraph.Precision(1),
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height/2+1),
		asciigraph.Caption("State of charge (%)"),
		asciigraph.SeriesLegends(lo.Map(ids, func(id string, _ int) string { return id + " SoC" })...),
		asciigraph.SeriesColors(colors(len(soc))...),
	))
	return err
}
