package discovery

import (
	"strings"

	"github.com/sells-group/venture-scout/internal/identity"
	"github.com/sells-group/venture-scout/internal/model"
)

// Filter drops candidates whose domain or text disqualifies them before
// they reach entity resolution.
type Filter struct {
	ExcludeDomains  []string
	ExcludeKeywords []string
}

// DefaultExcludeDomains lists aggregator and social domains that are never a
// company's own website.
var DefaultExcludeDomains = []string{
	"wikipedia.org",
	"youtube.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"reddit.com",
	"linkedin.com",
	"crunchbase.com",
}

// DefaultExcludeKeywords lists snippet phrases that disqualify a candidate.
var DefaultExcludeKeywords = []string{
	"publicly traded",
	"public company",
	"nasdaq",
	"nyse",
	"fortune 500",
	"consulting firm",
	"law firm",
	"accounting firm",
	"government agency",
}

// DefaultFilter returns a Filter with the default exclusion lists.
func DefaultFilter() *Filter {
	return &Filter{
		ExcludeDomains:  DefaultExcludeDomains,
		ExcludeKeywords: DefaultExcludeKeywords,
	}
}

// Keep reports whether a candidate survives the exclusion lists. Unresolved
// URLs skip the domain check.
func (f *Filter) Keep(rec model.RawRecord) bool {
	if f == nil {
		return true
	}

	if rec.URL != model.UnresolvedURL {
		domain := identity.Domain(rec.URL)
		for _, excluded := range f.ExcludeDomains {
			if domain == excluded || strings.HasSuffix(domain, "."+excluded) {
				return false
			}
		}
	}

	text := strings.ToLower(rec.Name + " " + rec.Snippet)
	for _, kw := range f.ExcludeKeywords {
		if strings.Contains(text, kw) {
			return false
		}
	}
	return true
}

// Apply returns the records that pass Keep, plus the count of dropped ones.
func (f *Filter) Apply(records []model.RawRecord) ([]model.RawRecord, int) {
	kept := make([]model.RawRecord, 0, len(records))
	for _, rec := range records {
		if f.Keep(rec) {
			kept = append(kept, rec)
		}
	}
	return kept, len(records) - len(kept)
}
