package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kilianp07/gridbalance/core/model"
	"github.com/kilianp07/gridbalance/core/runlog"
)

var runsOpts struct {
	limit     int
	status    string
	requestID string
	since     time.Duration
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE:  listRuns,
}

func init() {
	f := runsCmd.Flags()
	f.IntVarP(&runsOpts.limit, "limit", "n", 20, "show at most this many runs, newest last")
	f.StringVar(&runsOpts.status, "status", "", "only runs with this status")
	f.StringVar(&runsOpts.requestID, "request-id", "", "only runs of this request")
	f.DurationVar(&runsOpts.since, "since", 0, "only runs newer than this")
	rootCmd.AddCommand(runsCmd)
}

func listRuns(cmd *cobra.Command, _ []string) error {
	svc, _, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	q := runlog.Query{
		Limit:     runsOpts.limit,
		Status:    model.Status(runsOpts.status),
		RequestID: runsOpts.requestID,
	}
	if runsOpts.since > 0 {
		q.Start = time.Now().Add(-runsOpts.since)
	}
	recs, err := svc.History(cmd.Context(), q)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header([]string{"time", "run", "request", "logic", "mode", "status", "ms", "error"})
	for _, r := range recs {
		if err := table.Append([]string{
			r.Timestamp.Format(time.RFC3339),
			r.RunID,
			r.RequestID,
			string(r.ControlLogic),
			string(r.OperationMode),
			string(r.Status),
			strconv.FormatInt(r.DurationMS, 10),
			r.Error,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d runs\n", len(recs))
	return err
}
