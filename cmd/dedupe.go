package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/pipeline"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe [stage]",
	Short: "Merge duplicate entities within a stage artifact",
	Long: `Sweeps one stage artifact for entities that resolve to the same company
(shared domain, or matching normalized name when a domain is missing) and
merges them, keeping the more complete record. A timestamped backup is
written before the artifact is rewritten. Defaults to the report stage.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage := pipeline.StageReport
		if len(args) == 1 {
			stage = args[0]
		}

		ckpt, res, err := openCheckpoint()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		if !ckpt.ArtifactExists(stage) {
			return eris.Errorf("stage %s has no artifact", stage)
		}
		set, err := ckpt.Load(stage)
		if err != nil {
			return err
		}

		if _, err := ckpt.Backup(stage); err != nil {
			return err
		}

		swept, merged := res.Sweep(set)
		if merged == 0 {
			fmt.Printf("%s: %d entities, no duplicates found\n", stage, len(set))
			return nil
		}

		if err := ckpt.Commit(stage, swept); err != nil {
			return err
		}
		fmt.Printf("%s: merged %d duplicates, %d entities remain\n", stage, merged, len(swept))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}
