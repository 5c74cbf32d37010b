package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridbalance/qa/scenarios"
)

var scenarioDir string

var scenarioCmd = &cobra.Command{
	Use:   "scenario [file...]",
	Short: "Run scenario files and check their expectations",
	RunE:  runScenarios,
}

func init() {
	scenarioCmd.Flags().StringVarP(&scenarioDir, "dir", "d", "", "run every scenario in this directory")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scs []*scenarios.Scenario
	if scenarioDir != "" {
		loaded, err := scenarios.LoadDir(scenarioDir)
		if err != nil {
			return err
		}
		scs = append(scs, loaded...)
	}
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		scs = append(scs, sc)
	}
	if len(scs) == 0 {
		return fmt.Errorf("no scenarios given")
	}

	svc, _, err := newService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	out := cmd.OutOrStdout()
	failed := 0
	for _, sc := range scs {
		rep, err := scenarios.Run(ctx, svc, sc)
		if err != nil {
			return err
		}
		if rep.Passed() {
			fmt.Fprintf(out, "PASS %s (%s, %d rows)\n", rep.Name, rep.Status, rep.Rows)
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s (%s, %d rows)\n", rep.Name, rep.Status, rep.Rows)
		for _, f := range rep.Failures {
			fmt.Fprintf(out, "    %s\n", f)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scs))
	}
	return nil
}
