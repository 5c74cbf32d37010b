package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/pkg/export"
)

var runOpts struct {
	input       string
	inputFormat string
	output      string
	format      string
	timeout     time.Duration
	chartWidth  int
	chartHeight int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one control request and print the result",
	RunE:  runRequest,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.input, "input", "i", "", `request document, "-" for stdin`)
	f.StringVar(&runOpts.inputFormat, "input-format", "json", "format of a request read from stdin (json or yaml)")
	f.StringVarP(&runOpts.output, "output", "o", "", "write the result to this file instead of stdout")
	f.StringVar(&runOpts.format, "format", "json", "output format: json, csv, table or chart")
	f.DurationVar(&runOpts.timeout, "timeout", 0, "abort the run after this duration")
	f.IntVar(&runOpts.chartWidth, "chart-width", 0, "chart width, 0 fits the row count")
	f.IntVar(&runOpts.chartHeight, "chart-height", 12, "chart height")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

func readRequest(path, format string) (model.Request, error) {
	if path == "-" {
		return model.DecodeRequest(os.Stdin, format)
	}
	return model.LoadRequest(path)
}

func writeResult(w io.Writer, res model.Result) error {
	switch runOpts.format {
	case "json":
		return export.WriteJSON(w, res)
	case "csv":
		return export.WriteCSV(w, res)
	case "table":
		return export.WriteTable(w, res)
	case "chart":
		return export.WriteChart(w, res, export.ChartOptions{Width: runOpts.chartWidth, Height: runOpts.chartHeight})
	default:
		return fmt.Errorf("unknown format %q", runOpts.format)
	}
}

func runRequest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if runOpts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runOpts.timeout)
		defer cancel()
	}

	req, err := readRequest(runOpts.input, runOpts.inputFormat)
	if err != nil {
		return err
	}
	svc, _, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	res, err := svc.Run(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runOpts.output != "" {
		f, err := os.Create(runOpts.output)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	return writeResult(out, res)
}
