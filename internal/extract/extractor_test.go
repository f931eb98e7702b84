package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resilience"
	"github.com/sells-group/venture-scout/pkg/anthropic"
)

type fakeAnthropic struct {
	responses []*anthropic.MessageResponse
	errs      []error
	calls     int
	lastReq   anthropic.MessageRequest
}

func (f *fakeAnthropic) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
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

func jsonResponse(body string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: body}},
	}
}

const fullExtraction = `{
	"description": "AI analytics for renewable energy operators",
	"founders": "Dana Reyes, Kim Osei",
	"funding_info": "Seed $4M led by Foundry Group (2024)",
	"location": "Denver, CO",
	"headquarters": "Not found",
	"total_funding": "$4M",
	"business_model": "SaaS",
	"company_stage": "seed",
	"has_revenue": true,
	"founder_count": 2,
	"exit_potential": "high",
	"key_investors": ["Foundry Group", "Range VC"],
	"industries": ["energy", "analytics"]
}`

func TestExtractAppliesFields(t *testing.T) {
	fake := &fakeAnthropic{responses: []*anthropic.MessageResponse{jsonResponse(fullExtraction)}}

	entity := &model.Entity{Name: "BrightWave", URL: "https://brightwave.io", Attributes: map[string]model.Field{}}
	entity.SetAttr("snippet", model.TextField("AI analytics startup"))

	ex := NewExtractor(fake)
	require.NoError(t, ex.Extract(context.Background(), entity, "BrightWave builds AI analytics..."))

	assert.Equal(t, "Dana Reyes, Kim Osei", entity.AttrText("founders"))
	assert.Equal(t, "Denver, CO", entity.AttrText("location"))
	assert.Equal(t, "true", entity.AttrText("has_revenue"))
	assert.Equal(t, "2", entity.AttrText("founder_count"))
	assert.Equal(t, []string{"energy", "analytics"}, entity.AttrList("industries"))

	hq, ok := entity.Attr("headquarters")
	require.True(t, ok)
	assert.True(t, hq.NotFound)
	assert.False(t, hq.Useful())

	require.Len(t, entity.Investors, 2)
	assert.Equal(t, "Foundry Group", entity.Investors[0].Name)

	// The prompt carries entity context.
	assert.Contains(t, fake.lastReq.Messages[0].Content, "BrightWave")
	assert.Contains(t, fake.lastReq.Messages[0].Content, "https://brightwave.io")
}

func TestExtractToleratesMarkdownFences(t *testing.T) {
	fake := &fakeAnthropic{responses: []*anthropic.MessageResponse{
		jsonResponse("Here is the data:\n```json\n{\"location\": \"Boulder, CO\"}\n```"),
	}}

	entity := &model.Entity{Name: "Acme"}
	ex := NewExtractor(fake)
	require.NoError(t, ex.Extract(context.Background(), entity, "page text"))
	assert.Equal(t, "Boulder, CO", entity.AttrText("location"))
}

func TestExtractDoesNotOverwriteUsefulWithNotFound(t *testing.T) {
	fake := &fakeAnthropic{responses: []*anthropic.MessageResponse{
		jsonResponse(`{"founders": "Not found", "location": "Denver, CO"}`),
	}}

	entity := &model.Entity{Name: "Acme"}
	entity.SetAttr("founders", model.TextField("Dana Reyes"))

	ex := NewExtractor(fake)
	require.NoError(t, ex.Extract(context.Background(), entity, "page text"))
	assert.Equal(t, "Dana Reyes", entity.AttrText("founders"))
	assert.Equal(t, "Denver, CO", entity.AttrText("location"))
}

func TestExtractRetriesTransientErrors(t *testing.T) {
	fake := &fakeAnthropic{
		errs:      []error{resilience.NewTransientError(errors.New("overloaded"), 529)},
		responses: []*anthropic.MessageResponse{nil, jsonResponse(`{"location": "Denver, CO"}`)},
	}

	ex := NewExtractor(fake, WithRetry(resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
	}))
	entity := &model.Entity{Name: "Acme"}
	require.NoError(t, ex.Extract(context.Background(), entity, "page text"))
	assert.Equal(t, 2, fake.calls)
}

func TestExtractRejectsEmptyPage(t *testing.T) {
	ex := NewExtractor(&fakeAnthropic{})
	err := ex.Extract(context.Background(), &model.Entity{Name: "Acme"}, "  ")
	assert.Error(t, err)
}

func TestExtractFailsOnMalformedJSON(t *testing.T) {
	fake := &fakeAnthropic{responses: []*anthropic.MessageResponse{jsonResponse("not json at all")}}
	ex := NewExtractor(fake)
	err := ex.Extract(context.Background(), &model.Entity{Name: "Acme"}, "page")
	assert.Error(t, err)
}

func TestApplyEmptyListBecomesNotFound(t *testing.T) {
	entity := &model.Entity{Name: "Acme"}
	Apply(entity, map[string]any{"key_investors": []any{}})

	field, ok := entity.Attr("key_investors")
	require.True(t, ok)
	assert.True(t, field.NotFound)
	assert.Empty(t, entity.Investors)
}

func TestCoerceString(t *testing.T) {
	assert.Equal(t, "true", coerceString(true))
	assert.Equal(t, "42", coerceString(float64(42)))
	assert.Equal(t, "2.5", coerceString(2.5))
	assert.Equal(t, "a, b", coerceString([]any{"a", "b"}))
	assert.Equal(t, "", coerceString(nil))
}
