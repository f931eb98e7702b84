package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/pipeline"
)

var (
	runFrom string
	runAll  bool
)

var runCmd = &cobra.Command{
	Use:   "run [stage]",
	Short: "Execute the collection pipeline",
	Long: `Runs the pipeline stages in order: discover, collect, extract, report.
Without a stage argument the run resumes at the first stage whose checkpoint
artifact is missing; --all starts over from discover. A stage failure halts
the run; the next invocation picks up at the failed stage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		from := runFrom
		if len(args) == 1 {
			from = args[0]
		}
		if runAll {
			from = pipeline.StageDiscover
		}

		ckpt, res, err := openCheckpoint()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		ledger, err := openLedger(ctx)
		if err != nil {
			return err
		}
		if ledger != nil {
			defer ledger.Close()
		}

		p, err := buildPipeline(ckpt, res, ledger)
		if err != nil {
			return err
		}

		report, runErr := p.Run(ctx, from)
		if report != nil {
			fmt.Println(report.Render())
			if failed := report.FailedStage(); failed != "" {
				zap.L().Error("run halted", zap.String("stage", failed))
			}
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVar(&runFrom, "from", "",
		fmt.Sprintf("stage to start from %v; empty resumes automatically", pipeline.StageOrder))
	runCmd.Flags().BoolVar(&runAll, "all", false, "start from the first stage regardless of existing artifacts")
	rootCmd.AddCommand(runCmd)
}
