// Package model defines the entity records shared across pipeline stages.
package model

import "strings"

// UnresolvedURL is the sentinel stored when no website has been found for an
// entity yet. It is distinct from an empty string, which only appears on
// malformed input records.
const UnresolvedURL = "unresolved"

// NotFoundText is the sentinel an extraction connector returns for a field it
// looked for but could not find. It is distinct from the field being absent.
const NotFoundText = "Not found"

// Status describes the lifecycle state of an entity within a stage set.
type Status string

const (
	StatusActive            Status = "active"
	StatusIncomplete        Status = "incomplete"
	StatusResolvedDuplicate Status = "resolved_duplicate"
)

// Field is a tri-state attribute value: absent (not in the map), explicitly
// not found, or present with a string or list value.
type Field struct {
	Text     string   `json:"text,omitempty"`
	List     []string `json:"list,omitempty"`
	NotFound bool     `json:"not_found,omitempty"`
}

// Useful reports whether the field carries a meaningful value: present,
// non-empty, and not a "not found"/"unknown" placeholder.
func (f Field) Useful() bool {
	if f.NotFound {
		return false
	}
	if len(f.List) > 0 {
		return true
	}
	t := strings.TrimSpace(f.Text)
	if t == "" {
		return false
	}
	switch strings.ToLower(t) {
	case "unknown", "n/a", "none", "not found":
		return false
	}
	return true
}

// String returns the field as display text; list values are comma-joined.
func (f Field) String() string {
	if f.NotFound {
		return NotFoundText
	}
	if len(f.List) > 0 {
		return strings.Join(f.List, ", ")
	}
	return f.Text
}

// Text creates a present string field.
func TextField(s string) Field { return Field{Text: s} }

// ListField creates a present list field.
func ListField(vals ...string) Field { return Field{List: vals} }

// NotFoundField creates an explicit not-found field.
func NotFoundField() Field { return Field{NotFound: true} }

// Provenance records one (discovery query, source URL) pair that contributed
// to an entity. The provenance list on an entity grows only, never shrinks.
type Provenance struct {
	Query     string `json:"query"`
	SourceURL string `json:"source_url,omitempty"`
}

// Investor is a sub-entity describing one backer of an entity.
type Investor struct {
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name,omitempty"`
	Tier           string `json:"tier,omitempty"`
	TierRank       int    `json:"tier_rank,omitempty"`
	Category       string `json:"category,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`
}

// RawRecord is one discovery observation before entity resolution. Either
// Name or URL may be missing; a record missing both is malformed and dropped.
type RawRecord struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Snippet   string `json:"snippet,omitempty"`
	Query     string `json:"query,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
}

// Entity is one deduplicated organization within a stage's persisted set.
type Entity struct {
	CanonicalKey string           `json:"canonical_key"`
	RawName      string           `json:"raw_name"`
	Name         string           `json:"name"`
	URL          string           `json:"url"`
	Domain       string           `json:"domain,omitempty"`
	Attributes   map[string]Field `json:"attributes,omitempty"`
	Investors    []Investor       `json:"investors,omitempty"`
	Provenance   []Provenance     `json:"provenance,omitempty"`
	FoundCount   int              `json:"found_count"`
	Status       Status           `json:"status"`
}

// HasResolvedURL reports whether the entity has a real website rather than
// the unresolved sentinel.
func (e *Entity) HasResolvedURL() bool {
	return e.URL != "" && e.URL != UnresolvedURL
}

// Attr returns the named attribute and whether it is set at all.
func (e *Entity) Attr(key string) (Field, bool) {
	f, ok := e.Attributes[key]
	return f, ok
}

// AttrText returns the attribute's text when useful, else "".
func (e *Entity) AttrText(key string) string {
	f, ok := e.Attributes[key]
	if !ok || !f.Useful() {
		return ""
	}
	return f.Text
}

// AttrList returns the attribute's list value when useful, else nil.
func (e *Entity) AttrList(key string) []string {
	f, ok := e.Attributes[key]
	if !ok || !f.Useful() {
		return nil
	}
	return f.List
}

// SetAttr sets an attribute, allocating the map on first use.
func (e *Entity) SetAttr(key string, f Field) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]Field)
	}
	e.Attributes[key] = f
}

// Completeness counts the attributes holding useful values. It is the
// tie-breaking measure used by the merge policy.
func (e *Entity) Completeness() int {
	n := 0
	for _, f := range e.Attributes {
		if f.Useful() {
			n++
		}
	}
	if e.HasResolvedURL() {
		n++
	}
	return n
}

// AddProvenance appends a provenance pair unless the same (query, url) pair
// is already recorded.
func (e *Entity) AddProvenance(p Provenance) {
	for _, have := range e.Provenance {
		if have.Query == p.Query && have.SourceURL == p.SourceURL {
			return
		}
	}
	e.Provenance = append(e.Provenance, p)
}

// AddInvestor appends an investor unless one with the same normalized name
// is already present.
func (e *Entity) AddInvestor(inv Investor) {
	for _, have := range e.Investors {
		if have.NormalizedName != "" && have.NormalizedName == inv.NormalizedName {
			return
		}
		if have.Name == inv.Name {
			return
		}
	}
	e.Investors = append(e.Investors, inv)
}

// Clone returns a deep copy of the entity. Stage code mutates entities in
// place, so loads hand out copies.
func (e *Entity) Clone() Entity {
	out := *e
	if e.Attributes != nil {
		out.Attributes = make(map[string]Field, len(e.Attributes))
		for k, f := range e.Attributes {
			if f.List != nil {
				f.List = append([]string(nil), f.List...)
			}
			out.Attributes[k] = f
		}
	}
	out.Investors = append([]Investor(nil), e.Investors...)
	out.Provenance = append([]Provenance(nil), e.Provenance...)
	return out
}
