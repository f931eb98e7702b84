// Package resolver deduplicates raw discovery records into canonical entity
// sets. It owns the same-entity predicate and the deterministic merge policy
// used by every stage's checkpoint.
package resolver

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/identity"
	"github.com/sells-group/venture-scout/internal/model"
)

// Outcome classifies what happened to a single absorbed record.
type Outcome int

const (
	// Inserted means the record created a new entity.
	Inserted Outcome = iota
	// Merged means the record resolved to an existing entity.
	Merged
	// Dropped means the record was malformed (no name and no URL).
	Dropped
)

// Result summarizes a full resolution pass.
type Result struct {
	Entities []model.Entity
	Merged   int
	Dropped  int
}

// Resolver applies identity normalization and the merge policy.
type Resolver struct {
	norm *identity.Normalizer
}

// New creates a Resolver around the given normalizer.
func New(norm *identity.Normalizer) *Resolver {
	return &Resolver{norm: norm}
}

// Normalizer exposes the resolver's normalizer for callers that need the
// same aggressive keys (checkpoint partitioning, investor normalization).
func (r *Resolver) Normalizer() *identity.Normalizer {
	return r.norm
}

// EntityFromRecord builds a candidate entity from one raw record. Returns
// false when the record is malformed.
func (r *Resolver) EntityFromRecord(rec model.RawRecord) (model.Entity, bool) {
	name := identity.CleanName(rec.Name)
	url := strings.TrimSpace(rec.URL)
	if url == "" {
		url = model.UnresolvedURL
	}
	if name == "" && url == model.UnresolvedURL {
		return model.Entity{}, false
	}

	e := model.Entity{
		RawName:    rec.Name,
		Name:       name,
		URL:        url,
		FoundCount: 1,
		Status:     model.StatusActive,
	}
	if e.HasResolvedURL() {
		e.Domain = identity.Domain(url)
		e.CanonicalKey = "url:" + e.Domain
	} else {
		e.CanonicalKey = "name:" + r.norm.NormalizeNameAggressive(name)
	}
	if rec.Snippet != "" {
		e.SetAttr("snippet", model.TextField(rec.Snippet))
	}
	if rec.Query != "" || rec.SourceURL != "" {
		e.AddProvenance(model.Provenance{Query: rec.Query, SourceURL: rec.SourceURL})
	}
	return e, true
}

// SameEntity decides whether two entities denote the same organization.
//
// Names are compared in aggressive form; differing names end the decision.
// When both sides have resolvable domains the domains must be equal or one
// stripped domain base must contain the other. When at least one side has no
// resolvable URL, a name match alone is accepted: in this corpus same-named
// organizations are overwhelmingly the same entity, and an unresolved
// duplicate costs more than an occasional false merge.
func (r *Resolver) SameEntity(a, b *model.Entity) bool {
	an := r.norm.NormalizeNameAggressive(a.Name)
	bn := r.norm.NormalizeNameAggressive(b.Name)
	if an == "" || bn == "" || an != bn {
		return false
	}

	if a.HasResolvedURL() && b.HasResolvedURL() {
		if a.Domain == b.Domain {
			return true
		}
		ab := r.norm.DomainBase(a.Domain)
		bb := r.norm.DomainBase(b.Domain)
		if ab != "" && bb != "" &&
			(strings.Contains(ab, bb) || strings.Contains(bb, ab)) {
			return true
		}
		return false
	}

	return true
}

// Merge folds src into dst in place, deterministically. The record with the
// higher completeness score supplies conflicting values; ties go to the
// higher found count. No useful attribute from either side is lost, found
// counts are summed, and provenance is unioned.
func (r *Resolver) Merge(dst *model.Entity, src *model.Entity) {
	base, other := dst, src
	if src.Completeness() > dst.Completeness() ||
		(src.Completeness() == dst.Completeness() && src.FoundCount > dst.FoundCount) {
		base, other = src, dst
	}

	merged := base.Clone()
	merged.FoundCount = dst.FoundCount + src.FoundCount

	if !merged.HasResolvedURL() && other.HasResolvedURL() {
		merged.URL = other.URL
		merged.Domain = other.Domain
	}
	if merged.HasResolvedURL() {
		merged.CanonicalKey = "url:" + merged.Domain
	}

	for key, f := range other.Attributes {
		if have, ok := merged.Attr(key); !ok || !have.Useful() {
			if f.Useful() || !ok {
				merged.SetAttr(key, f)
			}
		}
	}
	for _, p := range other.Provenance {
		merged.AddProvenance(p)
	}
	for _, inv := range other.Investors {
		merged.AddInvestor(inv)
	}

	*dst = merged
}

// Absorb resolves one record against an existing set, merging or inserting,
// and returns the updated set. Domain-key equality is checked before the
// predicate so that same-domain records merge even under different names.
func (r *Resolver) Absorb(set []model.Entity, rec model.RawRecord) ([]model.Entity, Outcome) {
	cand, ok := r.EntityFromRecord(rec)
	if !ok {
		return set, Dropped
	}

	for i := range set {
		if cand.HasResolvedURL() && set[i].Domain == cand.Domain {
			r.Merge(&set[i], &cand)
			return set, Merged
		}
		if r.SameEntity(&set[i], &cand) {
			r.Merge(&set[i], &cand)
			return set, Merged
		}
	}
	return append(set, cand), Inserted
}

// Resolve runs the full two-pass resolution over an unordered batch: a URL
// pass keyed by registrable domain, then a name pass for URL-less records
// reconciled against everything already resolved, then a final sweep so that
// no two surviving entities satisfy the predicate.
func (r *Resolver) Resolve(records []model.RawRecord) Result {
	var res Result
	var set []model.Entity

	absorb := func(rec model.RawRecord) {
		var out Outcome
		set, out = r.Absorb(set, rec)
		switch out {
		case Merged:
			res.Merged++
		case Dropped:
			res.Dropped++
		}
	}

	// URL pass.
	for _, rec := range records {
		if url := strings.TrimSpace(rec.URL); url != "" && url != model.UnresolvedURL {
			absorb(rec)
		}
	}
	// Name pass.
	for _, rec := range records {
		if url := strings.TrimSpace(rec.URL); url == "" || url == model.UnresolvedURL {
			absorb(rec)
		}
	}

	set, swept := r.Sweep(set)
	res.Merged += swept
	res.Entities = set

	if res.Dropped > 0 {
		zap.L().Debug("resolver: dropped malformed records", zap.Int("dropped", res.Dropped))
	}
	return res
}

// Sweep merges any remaining pairs that satisfy the predicate, left to
// right, until the set is stable. The predicate is applied pairwise, not
// transitively: after A absorbs B, C is compared against the merged record.
func (r *Resolver) Sweep(set []model.Entity) ([]model.Entity, int) {
	merged := 0
	for again := true; again; {
		again = false
		for i := 0; i < len(set) && !again; i++ {
			for j := i + 1; j < len(set); j++ {
				if r.SameEntity(&set[i], &set[j]) {
					r.Merge(&set[i], &set[j])
					set = append(set[:j], set[j+1:]...)
					merged++
					again = true
					break
				}
			}
		}
	}
	return set, merged
}
