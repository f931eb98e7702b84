package pipeline

import (
	"context"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resolver"
	"github.com/sells-group/venture-scout/internal/scorer"
	"github.com/sells-group/venture-scout/internal/store"
)

// pageContentAttr holds fetched site text between collect and extract. It is
// stripped again during extract so the report artifact stays small.
const pageContentAttr = "page_content"

// discover runs every configured query, resolves the results against the
// existing entity set, and commits after each absorbed record.
func (p *Pipeline) discover(ctx context.Context) (store.StageCounts, error) {
	var counts store.StageCounts

	set, err := p.ckpt.Load(StageDiscover)
	if err != nil {
		return counts, err
	}

	for _, query := range p.opts.Queries {
		if ctx.Err() != nil {
			return counts, eris.Wrap(ctx.Err(), "discover")
		}

		records, err := p.searcher.Search(ctx, query)
		if err != nil {
			return counts, eris.Wrapf(err, "discover: query %q", query)
		}
		counts.Processed += len(records)

		fresh, known, dropped := p.ckpt.PartitionNew(set, records)
		counts.Known += known
		counts.Dropped += dropped

		for _, rec := range fresh {
			var outcome resolver.Outcome
			set, outcome = p.res.Absorb(set, rec)
			switch outcome {
			case resolver.Inserted:
				counts.New++
			case resolver.Merged:
				counts.Known++
			case resolver.Dropped:
				counts.Dropped++
				continue
			}
			if err := p.ckpt.Commit(StageDiscover, set); err != nil {
				return counts, err
			}
		}
	}

	// A run with zero results still produces an artifact, so resumption
	// does not re-run the stage.
	if !p.ckpt.ArtifactExists(StageDiscover) {
		if err := p.ckpt.Commit(StageDiscover, set); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

// collect fetches each discovered entity's website text. Fetch failures do
// not halt the stage; the entity moves on without content.
func (p *Pipeline) collect(ctx context.Context) (store.StageCounts, error) {
	var counts store.StageCounts

	upstream, err := p.ckpt.Load(StageDiscover)
	if err != nil {
		return counts, err
	}
	if upstream == nil {
		return counts, eris.New("collect: discover artifact missing")
	}

	set, err := p.ckpt.Load(StageCollect)
	if err != nil {
		return counts, err
	}

	todo, known := p.ckpt.PartitionEntities(set, upstream)
	counts.Known = known

	for _, src := range todo {
		if ctx.Err() != nil {
			return counts, eris.Wrap(ctx.Err(), "collect")
		}
		counts.Processed++

		entity := src.Clone()
		switch {
		case !entity.HasResolvedURL():
			entity.SetAttr(pageContentAttr, model.NotFoundField())
			counts.New++
		default:
			page, err := p.fetcher.FetchSite(ctx, entity.URL)
			if err != nil {
				zap.L().Warn("collect: site fetch failed",
					zap.String("entity", entity.Name),
					zap.String("url", entity.URL),
					zap.Error(err),
				)
				entity.SetAttr(pageContentAttr, model.NotFoundField())
				counts.Failed++
			} else {
				entity.SetAttr(pageContentAttr, model.TextField(page.Combined()))
				if page.AboutURL != "" {
					entity.SetAttr("about_page_url", model.TextField(page.AboutURL))
				}
				counts.New++
			}
		}

		set = append(set, entity)
		if err := p.ckpt.Commit(StageCollect, set); err != nil {
			return counts, err
		}
	}

	if !p.ckpt.ArtifactExists(StageCollect) {
		if err := p.ckpt.Commit(StageCollect, set); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

// extract enriches each collected entity via the extraction connector and
// strips the bulky page content from the committed artifact.
func (p *Pipeline) extract(ctx context.Context) (store.StageCounts, error) {
	var counts store.StageCounts

	upstream, err := p.ckpt.Load(StageCollect)
	if err != nil {
		return counts, err
	}
	if upstream == nil {
		return counts, eris.New("extract: collect artifact missing")
	}

	set, err := p.ckpt.Load(StageExtract)
	if err != nil {
		return counts, err
	}

	todo, known := p.ckpt.PartitionEntities(set, upstream)
	counts.Known = known

	for _, src := range todo {
		if ctx.Err() != nil {
			return counts, eris.Wrap(ctx.Err(), "extract")
		}
		counts.Processed++

		entity := src.Clone()
		pageText := entity.AttrText(pageContentAttr)
		if pageText == "" {
			pageText = entity.AttrText("snippet")
		}

		if pageText == "" {
			counts.Failed++
		} else if err := p.extractor.Extract(ctx, &entity, pageText); err != nil {
			zap.L().Warn("extract: enrichment failed",
				zap.String("entity", entity.Name),
				zap.Error(err),
			)
			counts.Failed++
		} else {
			counts.New++
		}

		delete(entity.Attributes, pageContentAttr)
		set = append(set, entity)
		if err := p.ckpt.Commit(StageExtract, set); err != nil {
			return counts, err
		}
	}

	if !p.ckpt.ArtifactExists(StageExtract) {
		if err := p.ckpt.Commit(StageExtract, set); err != nil {
			return counts, err
		}
	}
	return counts, nil
}

// report scores every extracted entity and commits the final artifact sorted
// by fit score, highest first.
func (p *Pipeline) report(ctx context.Context) (store.StageCounts, error) {
	var counts store.StageCounts

	upstream, err := p.ckpt.Load(StageExtract)
	if err != nil {
		return counts, err
	}
	if upstream == nil {
		return counts, eris.New("report: extract artifact missing")
	}
	if ctx.Err() != nil {
		return counts, eris.Wrap(ctx.Err(), "report")
	}

	set := make([]model.Entity, len(upstream))
	for i, src := range upstream {
		entity := src.Clone()
		total, _ := scorer.Score(&entity, p.opts.ScoreConfig)
		entity.SetAttr("fit_score", model.TextField(strconv.Itoa(total)))
		set[i] = entity
		counts.Processed++
		counts.New++
	}

	sort.SliceStable(set, func(i, j int) bool {
		a, _ := strconv.Atoi(set[i].AttrText("fit_score"))
		b, _ := strconv.Atoi(set[j].AttrText("fit_score"))
		return a > b
	})

	if err := p.ckpt.Commit(StageReport, set); err != nil {
		return counts, err
	}
	return counts, nil
}
