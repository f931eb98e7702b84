package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resilience"
	"github.com/sells-group/venture-scout/pkg/perplexity"
)

type fakePerplexity struct {
	responses []*perplexity.ChatCompletionResponse
	errs      []error
	calls     int
	lastReq   perplexity.ChatCompletionRequest
}

func (f *fakePerplexity) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.lastReq = req
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func textResponse(content string, citations ...string) *perplexity.ChatCompletionResponse {
	return &perplexity.ChatCompletionResponse{
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: content}}},
		Citations: citations,
	}
}

func TestSearchParsesAndFilters(t *testing.T) {
	fake := &fakePerplexity{responses: []*perplexity.ChatCompletionResponse{
		textResponse(
			"BrightWave | https://brightwave.io | AI analytics, raised $4M\n"+
				"Acme | URL_NEEDED | warehouse robots\n"+
				"WikiThing | https://en.wikipedia.org/wiki/Thing | encyclopedia entry",
			"https://techcrunch.com/brightwave",
		),
	}}

	s := NewPerplexitySearcher(fake)
	records, err := s.Search(context.Background(), "AI startups in Denver")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "BrightWave", records[0].Name)
	assert.Equal(t, model.UnresolvedURL, records[1].URL)
	for _, rec := range records {
		assert.Equal(t, "AI startups in Denver", rec.Query)
		assert.Equal(t, "https://techcrunch.com/brightwave", rec.SourceURL)
	}
}

func TestSearchSendsSystemPrompt(t *testing.T) {
	fake := &fakePerplexity{responses: []*perplexity.ChatCompletionResponse{textResponse("")}}

	s := NewPerplexitySearcher(fake, WithMaxResults(5))
	_, err := s.Search(context.Background(), "fintech seed stage")
	require.NoError(t, err)

	require.Len(t, fake.lastReq.Messages, 2)
	assert.Equal(t, "system", fake.lastReq.Messages[0].Role)
	assert.Contains(t, fake.lastReq.Messages[0].Content, "URL_NEEDED")
	assert.Contains(t, fake.lastReq.Messages[1].Content, "up to 5")
	assert.Contains(t, fake.lastReq.Messages[1].Content, "fintech seed stage")
}

func TestSearchRetriesTransientFailures(t *testing.T) {
	fake := &fakePerplexity{
		errs:      []error{resilience.NewTransientError(errors.New("overloaded"), 503)},
		responses: []*perplexity.ChatCompletionResponse{nil, textResponse("Acme | https://acme.io | robots")},
	}

	s := NewPerplexitySearcher(fake, WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))
	records, err := s.Search(context.Background(), "robotics")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 2, fake.calls)
}

func TestSearchDoesNotRetryPermanentFailures(t *testing.T) {
	fake := &fakePerplexity{errs: []error{errors.New("invalid api key"), errors.New("invalid api key")}}

	s := NewPerplexitySearcher(fake)
	_, err := s.Search(context.Background(), "robotics")
	require.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	s := NewPerplexitySearcher(&fakePerplexity{})
	_, err := s.Search(context.Background(), "   ")
	assert.Error(t, err)
}
