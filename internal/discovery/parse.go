// Package discovery turns web-search responses into candidate company
// records. Responses arrive as pipe-delimited lines ("Name | URL |
// Description") which are parsed, cleaned, and filtered for placeholder
// names before entering entity resolution.
package discovery

import (
	"regexp"
	"strings"

	"github.com/sells-group/venture-scout/internal/identity"
	"github.com/sells-group/venture-scout/internal/model"
)

// urlSentinels are values the search model emits when it cannot find a
// website. They all map to the unresolved URL marker.
var urlSentinels = map[string]bool{
	"URL_NEEDED":   true,
	"NOT PROVIDED": true,
	"N/A":          true,
	"UNKNOWN":      true,
}

var numberedPlaceholder = regexp.MustCompile(`^(?:\[?company) \d+`)

// placeholderName reports whether a parsed name is an instruction echo or a
// template placeholder rather than a real company name.
func placeholderName(name string) bool {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)

	if len(trimmed) < 2 {
		return true
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "(") || strings.HasPrefix(trimmed, "`") {
		return true
	}
	for _, prefix := range []string{
		"if the", "if website", "company name", "company xyz", "example",
		`"company`, `'company`,
	} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, frag := range []string{"short description", "format:", "example:"} {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	switch lower {
	case "company", "startup", "business", "firm", "corp", "inc":
		return true
	}
	return numberedPlaceholder.MatchString(lower)
}

// ParseResponse extracts candidate records from a pipe-delimited search
// response. Lines without at least a name and URL column are skipped, as are
// placeholder names. URL sentinels become model.UnresolvedURL.
func ParseResponse(content, query string) []model.RawRecord {
	var records []model.RawRecord

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "|") {
			continue
		}

		parts := strings.Split(line, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 2 {
			continue
		}

		name := identity.CleanName(strings.TrimLeft(parts[0], "- "))
		if placeholderName(name) {
			continue
		}

		url := parts[1]
		if urlSentinels[strings.ToUpper(url)] || url == "" {
			url = model.UnresolvedURL
		} else if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			continue
		}

		snippet := ""
		if len(parts) > 2 {
			snippet = strings.Join(parts[2:], " | ")
		}
		if strings.Contains(strings.ToLower(snippet), "short description") {
			continue
		}

		records = append(records, model.RawRecord{
			Name:    name,
			URL:     url,
			Snippet: snippet,
			Query:   query,
		})
	}

	return records
}
