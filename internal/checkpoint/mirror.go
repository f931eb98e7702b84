package checkpoint

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/sells-group/venture-scout/internal/model"
)

// mirrorColumns is the fixed column order of the CSV mirror. The mirror and
// the JSON artifact always describe the same canonical keys.
var mirrorColumns = []string{
	"canonical_name",
	"url",
	"found_count",
	"status",
	"provenance",
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
	"fit_score",
}

func renderMirror(set []model.Entity) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(mirrorColumns); err != nil {
		return nil, err
	}
	for i := range set {
		if err := w.Write(mirrorRow(&set[i])); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func mirrorRow(e *model.Entity) []string {
	return []string{
		e.Name,
		e.URL,
		fmt.Sprintf("%d", e.FoundCount),
		string(e.Status),
		provenanceSummary(e),
		mirrorAttr(e, "description"),
		mirrorAttr(e, "founders"),
		mirrorAttr(e, "funding_info"),
		mirrorAttr(e, "total_funding"),
		mirrorAttr(e, "location"),
		mirrorAttr(e, "headquarters"),
		mirrorAttr(e, "key_investors"),
		mirrorAttr(e, "industries"),
		mirrorAttr(e, "business_model"),
		mirrorAttr(e, "company_stage"),
		mirrorAttr(e, "fit_score"),
	}
}

func mirrorAttr(e *model.Entity, key string) string {
	f, ok := e.Attr(key)
	if !ok {
		return ""
	}
	return f.String()
}

// provenanceSummary joins the distinct discovery queries behind an entity.
func provenanceSummary(e *model.Entity) string {
	seen := make(map[string]bool, len(e.Provenance))
	var queries []string
	for _, p := range e.Provenance {
		if p.Query == "" || seen[p.Query] {
			continue
		}
		seen[p.Query] = true
		queries = append(queries, p.Query)
	}
	return strings.Join(queries, "; ")
}
