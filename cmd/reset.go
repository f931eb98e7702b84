package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/pipeline"
)

var (
	resetStage     string
	resetFields    []string
	resetThreshold int
)

var resetCmd = &cobra.Command{
	Use:   "reset-incomplete",
	Short: "Evict incomplete entities so the next run re-researches them",
	Long: `Scans a stage artifact for entities missing too many required fields and
removes them from that stage and every downstream stage. The next run then
treats the evicted companies as new and researches them again. Required
fields and the missing-field threshold default to the reset section of the
config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := resetFields
		if len(fields) == 0 {
			fields = cfg.Reset.RequiredFields
		}
		threshold := resetThreshold
		if threshold <= 0 {
			threshold = cfg.Reset.Threshold
		}

		ckpt, _, err := openCheckpoint()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		report, err := ckpt.EvictIncomplete(resetStage, downstreamOf(resetStage), fields, threshold)
		if err != nil {
			return err
		}

		if len(report.Evicted) == 0 {
			fmt.Printf("%s: %d entities, none incomplete\n", resetStage, report.KeptInStage)
			return nil
		}

		fmt.Printf("evicted %d incomplete entities from %s (%d kept)\n",
			len(report.Evicted), resetStage, report.KeptInStage)
		for _, key := range report.Evicted {
			fmt.Printf("  %s\n", key)
		}
		for _, s := range downstreamOf(resetStage) {
			if n := report.RemovedFrom[s]; n > 0 {
				fmt.Printf("removed %d from %s\n", n, s)
			}
		}
		for _, b := range report.BackupsMade {
			fmt.Printf("backup: %s\n", b)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetStage, "stage", pipeline.StageExtract, "stage artifact to scan")
	resetCmd.Flags().StringSliceVar(&resetFields, "fields", nil, "required fields (default from config)")
	resetCmd.Flags().IntVar(&resetThreshold, "threshold", 0, "evict when at least this many required fields are missing (default from config)")
	rootCmd.AddCommand(resetCmd)
}
