package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resilience"
	"github.com/sells-group/venture-scout/pkg/perplexity"
)

const systemPrompt = `You are a startup research assistant. Return real companies only.
For each company, output exactly one line in this format:

Company Name | Website URL or URL_NEEDED | Brief description with location and funding details

Rules:
- Provide ACTUAL company names. Never use placeholders like "[Company 1]", "Company Name", or "Company XYZ".
- If the official website is unknown, write URL_NEEDED in the URL column.
- If you cannot find real companies, return fewer lines rather than inventing any.
- No headers, no numbering, no commentary. One company per line.`

// PerplexitySearcher runs discovery queries against the Perplexity API and
// parses the response into candidate records.
type PerplexitySearcher struct {
	client perplexity.Client
	gate   *resilience.Gate
	retry  resilience.RetryConfig
	filter *Filter
	max    int
}

// SearcherOption configures a PerplexitySearcher.
type SearcherOption func(*PerplexitySearcher)

// WithGate sets the pacing gate applied before each API call.
func WithGate(g *resilience.Gate) SearcherOption {
	return func(s *PerplexitySearcher) { s.gate = g }
}

// WithRetry sets the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) SearcherOption {
	return func(s *PerplexitySearcher) { s.retry = cfg }
}

// WithFilter sets the candidate filter. Defaults to DefaultFilter.
func WithFilter(f *Filter) SearcherOption {
	return func(s *PerplexitySearcher) { s.filter = f }
}

// WithMaxResults caps the number of companies requested per query.
func WithMaxResults(n int) SearcherOption {
	return func(s *PerplexitySearcher) { s.max = n }
}

// NewPerplexitySearcher creates a searcher with the given client.
func NewPerplexitySearcher(client perplexity.Client, opts ...SearcherOption) *PerplexitySearcher {
	s := &PerplexitySearcher{
		client: client,
		gate:   resilience.NewGate(0),
		retry:  resilience.DefaultRetryConfig(),
		filter: DefaultFilter(),
		max:    20,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Search runs one discovery query and returns the filtered candidate records.
func (s *PerplexitySearcher) Search(ctx context.Context, query string) ([]model.RawRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, eris.New("discovery: empty query")
	}

	if err := s.gate.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "discovery: rate gate")
	}

	prompt := fmt.Sprintf("Find up to %d companies matching: %s", s.max, query)
	resp, err := resilience.Retry(ctx, s.retry, "perplexity search",
		func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
			return s.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
				Messages: []perplexity.Message{
					{Role: "system", Content: systemPrompt},
					{Role: "user", Content: prompt},
				},
			})
		})
	if err != nil {
		return nil, eris.Wrap(err, "discovery: search")
	}

	records := ParseResponse(resp.Content(), query)
	kept, dropped := s.filter.Apply(records)

	// The model sometimes leaves the company's source page in the citation
	// list rather than the answer. Attach the first citation as provenance.
	source := ""
	if len(resp.Citations) > 0 {
		source = resp.Citations[0]
	}
	for i := range kept {
		kept[i].SourceURL = source
	}

	zap.L().Debug("search query complete",
		zap.String("query", query),
		zap.Int("parsed", len(records)),
		zap.Int("kept", len(kept)),
		zap.Int("filtered", dropped),
	)
	return kept, nil
}
