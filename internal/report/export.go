// Package report exports the final scored entity set to analyst-facing
// formats: CSV, XLSX, and a flattened investor list.
package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/venture-scout/internal/model"
)

// exportColumns is the column order for CSV and XLSX exports.
var exportColumns = []string{
	"name",
	"url",
	"fit_score",
	"status",
	"found_count",
	"description",
	"founders",
	"funding_info",
	"total_funding",
	"location",
	"headquarters",
	"key_investors",
	"industries",
	"business_model",
	"company_stage",
	"queries",
}

// row flattens one entity into export cells, in exportColumns order.
func row(e *model.Entity) []string {
	queries := make([]string, 0, len(e.Provenance))
	seen := map[string]bool{}
	for _, p := range e.Provenance {
		if p.Query != "" && !seen[p.Query] {
			seen[p.Query] = true
			queries = append(queries, p.Query)
		}
	}

	attr := func(name string) string {
		f, ok := e.Attr(name)
		if !ok {
			return ""
		}
		return f.String()
	}

	return []string{
		e.Name,
		e.URL,
		attr("fit_score"),
		string(e.Status),
		strconv.Itoa(e.FoundCount),
		attr("description"),
		attr("founders"),
		attr("funding_info"),
		attr("total_funding"),
		attr("location"),
		attr("headquarters"),
		attr("key_investors"),
		attr("industries"),
		attr("business_model"),
		attr("company_stage"),
		strings.Join(queries, "; "),
	}
}

// WriteCSV writes the entity set to a CSV file.
func WriteCSV(path string, set []model.Entity) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(exportColumns); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for i := range set {
		if err := w.Write(row(&set[i])); err != nil {
			return eris.Wrapf(err, "report: write row %s", set[i].Name)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return eris.Wrap(f.Close(), "report: close csv")
}

// WriteXLSX writes the entity set to a single-sheet workbook.
func WriteXLSX(path string, set []model.Entity) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("companies")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().Value = col
	}

	for i := range set {
		xr := sheet.AddRow()
		for j, val := range row(&set[i]) {
			cell := xr.AddCell()
			// fit_score and found_count export as numbers.
			if j == 2 || j == 4 {
				if n, err := strconv.Atoi(val); err == nil {
					cell.SetInt(n)
					continue
				}
			}
			cell.Value = val
		}
	}

	return eris.Wrapf(file.Save(path), "report: save %s", path)
}

// investorColumns is the column order for the investor export.
var investorColumns = []string{"company", "investor", "tier", "category", "source_url"}

// WriteInvestorsCSV writes one row per (company, investor) pair.
func WriteInvestorsCSV(path string, set []model.Entity) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(investorColumns); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for i := range set {
		e := &set[i]
		for _, inv := range e.Investors {
			rec := []string{e.Name, inv.Name, inv.Tier, inv.Category, inv.SourceURL}
			if err := w.Write(rec); err != nil {
				return eris.Wrapf(err, "report: write investor row %s", inv.Name)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return eris.Wrap(f.Close(), "report: close csv")
}
