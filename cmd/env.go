package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/venture-scout/internal/checkpoint"
	"github.com/sells-group/venture-scout/internal/config"
	"github.com/sells-group/venture-scout/internal/discovery"
	"github.com/sells-group/venture-scout/internal/extract"
	"github.com/sells-group/venture-scout/internal/fetcher"
	"github.com/sells-group/venture-scout/internal/identity"
	"github.com/sells-group/venture-scout/internal/pipeline"
	"github.com/sells-group/venture-scout/internal/resilience"
	"github.com/sells-group/venture-scout/internal/resolver"
	"github.com/sells-group/venture-scout/internal/store"
	"github.com/sells-group/venture-scout/pkg/anthropic"
	"github.com/sells-group/venture-scout/pkg/perplexity"
)

// openCheckpoint builds the resolver from the identity config and opens the
// workspace checkpoint store.
func openCheckpoint() (*checkpoint.Store, *resolver.Resolver, error) {
	norm := identity.NewNormalizer(cfg.Identity.LegalSuffixes, cfg.Identity.DomainSuffixTokens)
	res := resolver.New(norm)
	ckpt, err := checkpoint.Open(cfg.Workspace.Dir, res)
	if err != nil {
		return nil, nil, err
	}
	return ckpt, res, nil
}

// openCheckpointRead opens the workspace without the writer lock, so status
// surfaces can watch a run in progress.
func openCheckpointRead() (*checkpoint.Store, error) {
	norm := identity.NewNormalizer(cfg.Identity.LegalSuffixes, cfg.Identity.DomainSuffixTokens)
	return checkpoint.OpenRead(cfg.Workspace.Dir, resolver.New(norm))
}

// openLedger opens the run ledger for the configured driver and applies
// migrations. An empty driver disables the ledger and returns nil.
func openLedger(ctx context.Context) (store.Store, error) {
	var st store.Store
	switch cfg.Ledger.Driver {
	case "":
		return nil, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Ledger.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = s
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Ledger.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Ledger.MaxConns,
			MinConns: cfg.Ledger.MinConns,
		})
		if err != nil {
			return nil, err
		}
		st = s
	default:
		return nil, eris.Errorf("unknown ledger driver %q", cfg.Ledger.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func gate(intervalSecs int) *resilience.Gate {
	return resilience.NewGate(time.Duration(intervalSecs) * time.Second)
}

// buildPipeline wires the stage clients from configuration.
func buildPipeline(ckpt *checkpoint.Store, res *resolver.Resolver, ledger store.Store) (*pipeline.Pipeline, error) {
	if cfg.Perplexity.Key == "" {
		return nil, eris.New("perplexity API key not set (SCOUT_PERPLEXITY_KEY)")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key not set (SCOUT_ANTHROPIC_KEY)")
	}

	queries, err := config.LoadQueries(cfg.Discovery.QueriesFile)
	if err != nil {
		return nil, err
	}

	filter := discovery.DefaultFilter()
	if len(cfg.Discovery.ExcludeDomains) > 0 {
		filter.ExcludeDomains = cfg.Discovery.ExcludeDomains
	}
	if len(cfg.Discovery.ExcludeKeywords) > 0 {
		filter.ExcludeKeywords = cfg.Discovery.ExcludeKeywords
	}

	pplx := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
	)
	searcher := discovery.NewPerplexitySearcher(pplx,
		discovery.WithGate(gate(cfg.Perplexity.RateIntervalSecs)),
		discovery.WithFilter(filter),
		discovery.WithMaxResults(cfg.Discovery.MaxResults),
	)

	sites := fetcher.NewHTTPFetcher(
		fetcher.WithGate(gate(cfg.Fetch.RateIntervalSecs)),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
	)

	extractor := extract.NewExtractor(anthropic.NewClient(cfg.Anthropic.Key),
		extract.WithModel(cfg.Anthropic.Model),
		extract.WithGate(gate(cfg.Anthropic.RateIntervalSecs)),
	)

	return pipeline.New(ckpt, res, searcher, sites, extractor, ledger, pipeline.Options{
		Queries:     queries,
		ScoreConfig: cfg.ScoreConfig(),
	}), nil
}

// downstreamOf returns the stages that run after the given stage.
func downstreamOf(stage string) []string {
	for i, s := range pipeline.StageOrder {
		if s == stage {
			return pipeline.StageOrder[i+1:]
		}
	}
	return nil
}
