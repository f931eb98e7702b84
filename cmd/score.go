package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/pipeline"
	"github.com/sells-group/venture-scout/internal/scorer"
)

var scoreTop int

// breakdownOrder fixes the criterion column order for display.
var breakdownOrder = []string{
	"business_model",
	"market_alignment",
	"stage_fit",
	"team_quality",
	"traction",
	"investor_backing",
	"exit_potential",
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Re-score the report artifact and show the top companies",
	Long: `Recomputes the fit score for every entity in the report artifact using the
current scoring weights, rewrites the artifact in descending score order, and
prints the top companies with their per-criterion breakdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ckpt, _, err := openCheckpoint()
		if err != nil {
			return err
		}
		defer ckpt.Close()

		if !ckpt.ArtifactExists(pipeline.StageReport) {
			return eris.New("no report artifact; run the pipeline first")
		}
		set, err := ckpt.Load(pipeline.StageReport)
		if err != nil {
			return err
		}

		scoreCfg := cfg.ScoreConfig()
		breakdowns := make(map[string]map[string]int, len(set))
		for i := range set {
			total, breakdown := scorer.Score(&set[i], scoreCfg)
			set[i].SetAttr("fit_score", model.TextField(strconv.Itoa(total)))
			breakdowns[set[i].CanonicalKey] = breakdown
		}
		sort.SliceStable(set, func(i, j int) bool {
			return fitScore(&set[i]) > fitScore(&set[j])
		})

		if err := ckpt.Commit(pipeline.StageReport, set); err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Company", "Score", "Breakdown", "URL"})
		t.SetColumnConfigs([]table.ColumnConfig{{Name: "Score", Align: text.AlignRight}})
		for i := range set {
			if scoreTop > 0 && i >= scoreTop {
				break
			}
			e := &set[i]
			t.AppendRow(table.Row{i + 1, e.Name, e.AttrText("fit_score"), formatBreakdown(breakdowns[e.CanonicalKey]), e.URL})
		}
		fmt.Println(t.Render())
		fmt.Printf("scored %d companies\n", len(set))
		return nil
	},
}

func fitScore(e *model.Entity) int {
	n, _ := strconv.Atoi(e.AttrText("fit_score"))
	return n
}

func formatBreakdown(breakdown map[string]int) string {
	parts := make([]string, 0, len(breakdownOrder))
	for _, key := range breakdownOrder {
		parts = append(parts, fmt.Sprintf("%s %d", key, breakdown[key]))
	}
	return strings.Join(parts, ", ")
}

func init() {
	scoreCmd.Flags().IntVar(&scoreTop, "top", 20, "number of companies to print (0 for all)")
	rootCmd.AddCommand(scoreCmd)
}
