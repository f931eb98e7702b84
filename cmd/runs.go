package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/store"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run ledger",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := requireLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		runs, err := ledger.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tFINISHED")
		for _, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Status, r.StartedAt.Format(time.RFC3339), finished)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the stage executions of one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger, err := requireLedger(cmd)
		if err != nil {
			return err
		}
		defer ledger.Close()

		run, err := ledger.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		stages, err := ledger.ListStageRuns(cmd.Context(), run.ID)
		if err != nil {
			return err
		}

		fmt.Printf("run %s: %s, started %s\n", run.ID, run.Status, run.StartedAt.Format(time.RFC3339))
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tSTATUS\tPROCESSED\tNEW\tKNOWN\tDROPPED\tFAILED\tDURATION\tERROR")
		for _, s := range stages {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
				s.Stage, s.Status,
				s.Counts.Processed, s.Counts.New, s.Counts.Known, s.Counts.Dropped, s.Counts.Failed,
				s.Duration().Round(time.Millisecond), s.Error)
		}
		return w.Flush()
	},
}

func requireLedger(cmd *cobra.Command) (store.Store, error) {
	ledger, err := openLedger(cmd.Context())
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, eris.New("run ledger disabled (ledger.driver is empty)")
	}
	return ledger, nil
}

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
