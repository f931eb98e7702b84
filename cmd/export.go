package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/venture-scout/internal/pipeline"
	"github.com/sells-group/venture-scout/internal/report"
)

var (
	exportFormat    string
	exportOut       string
	exportInvestors bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the report artifact for analysts",
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

		out := exportOut
		if out == "" {
			out = filepath.Join(ckpt.Dir(), "report."+exportFormat)
		}

		switch exportFormat {
		case "csv":
			err = report.WriteCSV(out, set)
		case "xlsx":
			err = report.WriteXLSX(out, set)
		default:
			return eris.Errorf("unknown export format %q (want csv or xlsx)", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d companies to %s\n", len(set), out)

		if exportInvestors {
			invPath := filepath.Join(filepath.Dir(out), "investors.csv")
			if err := report.WriteInvestorsCSV(invPath, set); err != nil {
				return err
			}
			fmt.Printf("wrote investor list to %s\n", invPath)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "output", "", "output path (default <workspace>/report.<format>)")
	exportCmd.Flags().BoolVar(&exportInvestors, "investors", false, "also write a flattened investors.csv")
	rootCmd.AddCommand(exportCmd)
}
