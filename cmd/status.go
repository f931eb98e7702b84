package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/checkpoint"
	"github.com/sells-group/venture-scout/internal/pipeline"
)

var statusWatch time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint artifact status per stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ckpt, err := openCheckpointRead()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		if statusWatch <= 0 {
			out, err := renderStatus(ckpt)
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		}

		ticker := time.NewTicker(statusWatch)
		defer ticker.Stop()
		for {
			out, err := renderStatus(ckpt)
			if err != nil {
				return err
			}
			// Clear the terminal between refreshes.
			fmt.Print("\033[2J\033[H")
			fmt.Println(out)
			fmt.Printf("refreshing every %s, ctrl-c to stop\n", statusWatch)

			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

func renderStatus(ckpt *checkpoint.Store) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Stage", "Artifact", "Entities", "Incomplete", "Updated"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Entities", Align: text.AlignRight},
		{Name: "Incomplete", Align: text.AlignRight},
	})

	for _, stage := range pipeline.StageOrder {
		if !ckpt.ArtifactExists(stage) {
			t.AppendRow(table.Row{stage, "missing", "-", "-", "-"})
			continue
		}

		set, err := ckpt.Load(stage)
		if err != nil {
			return "", err
		}
		incomplete := 0
		for i := range set {
			if checkpoint.Incomplete(&set[i], cfg.Reset.RequiredFields, cfg.Reset.Threshold) {
				incomplete++
			}
		}

		updated := "-"
		if info, err := os.Stat(ckpt.JSONPath(stage)); err == nil {
			updated = info.ModTime().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{stage, "present", strconv.Itoa(len(set)), strconv.Itoa(incomplete), updated})
	}

	return fmt.Sprintf("%s\nworkspace: %s", t.Render(), ckpt.Dir()), nil
}

func init() {
	statusCmd.Flags().DurationVar(&statusWatch, "watch", 0, "refresh interval, e.g. 10s (0 prints once)")
	rootCmd.AddCommand(statusCmd)
}
