// Package extract enriches entities with structured attributes pulled from
// website text by a language model. Attributes the model cannot find are
// recorded as explicit not-found values so later passes do not re-ask.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/venture-scout/internal/model"
	"github.com/sells-group/venture-scout/internal/resilience"
	"github.com/sells-group/venture-scout/pkg/anthropic"
)

const defaultModel = "claude-haiku-4-5-20251001"

// textAttributes are the scalar fields requested from the model.
var textAttributes = []string{
	"description",
	"founders",
	"funding_info",
	"latest_funding_date",
	"location",
	"headquarters",
	"total_funding",
	"business_model",
	"company_stage",
	"growth_rate",
	"customer_count",
	"founder_count",
	"has_technical_founders",
	"has_revenue",
	"has_public_investors",
	"exit_potential",
}

// listAttributes are the array fields requested from the model.
var listAttributes = []string{"key_investors", "industries"}

const extractSystemPrompt = `You extract structured company information from website text.
Respond with a single JSON object and nothing else. Fields:

{
  "description": "One-sentence description of what the company does",
  "founders": "Full names of founders/co-founders, comma-separated",
  "funding_info": "Funding rounds with amounts, lead investors, and year",
  "latest_funding_date": "Date or year of the most recent round",
  "location": "City, State (e.g., Denver, CO) or City, Country",
  "headquarters": "Full headquarters address if available",
  "total_funding": "Total funding amount (e.g., $50M)",
  "business_model": "SaaS, marketplace, hardware, services, etc.",
  "company_stage": "pre-seed, seed, series-a, series-b, growth",
  "growth_rate": "Growth figure with unit (e.g., 300% YoY)",
  "customer_count": "Number of customers if stated",
  "founder_count": "Number of founders",
  "has_technical_founders": "true or false",
  "has_revenue": "true or false",
  "has_public_investors": "true or false",
  "exit_potential": "high, medium, or low",
  "key_investors": ["Investor 1", "Investor 2"],
  "industries": ["Industry 1", "Industry 2"]
}

If a field is not found in the text, use "Not found" for strings and [] for arrays.
Never guess. Never include markdown fences or commentary.`

// Extractor calls the model and writes attributes onto entities.
type Extractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	gate      *resilience.Gate
	retry     resilience.RetryConfig
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithModel overrides the extraction model.
func WithModel(m string) ExtractorOption {
	return func(e *Extractor) { e.model = m }
}

// WithGate sets the pacing gate applied before each API call.
func WithGate(g *resilience.Gate) ExtractorOption {
	return func(e *Extractor) { e.gate = g }
}

// WithRetry sets the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) ExtractorOption {
	return func(e *Extractor) { e.retry = cfg }
}

// NewExtractor creates an Extractor backed by the given client.
func NewExtractor(client anthropic.Client, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client:    client,
		model:     defaultModel,
		maxTokens: 2048,
		gate:      resilience.NewGate(0),
		retry:     resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract enriches the entity in place from page text. Existing useful
// attributes are never overwritten by not-found results.
func (e *Extractor) Extract(ctx context.Context, entity *model.Entity, pageText string) error {
	if strings.TrimSpace(pageText) == "" {
		return eris.New("extract: empty page text")
	}

	if err := e.gate.Wait(ctx); err != nil {
		return eris.Wrap(err, "extract: rate gate")
	}

	prompt := fmt.Sprintf("Company: %s\nWebsite: %s\nDiscovery snippet: %s\n\nWebsite text:\n%s",
		entity.Name, entity.URL, entity.AttrText("snippet"), pageText)

	resp, err := resilience.Retry(ctx, e.retry, "extract attributes",
		func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return e.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     e.model,
				MaxTokens: e.maxTokens,
				System:    extractSystemPrompt,
				Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			})
		})
	if err != nil {
		return eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(e.model, "extract")

	fields, err := parseExtraction(resp.Text())
	if err != nil {
		return err
	}
	Apply(entity, fields)

	zap.L().Debug("entity extracted",
		zap.String("entity", entity.Name),
		zap.Int("completeness", entity.Completeness()),
	)
	return nil
}

// parseExtraction decodes the model's JSON object, tolerating markdown fences.
func parseExtraction(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	// Some responses wrap the object in prose despite the instructions.
	if i := strings.Index(raw, "{"); i > 0 {
		raw = raw[i:]
	}
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		raw = raw[:i+1]
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, eris.Wrap(err, "extract: parse response")
	}
	return fields, nil
}

// Apply writes parsed fields onto the entity. Not-found values only land when
// the attribute is not already useful, so re-extraction cannot erase data.
func Apply(entity *model.Entity, fields map[string]any) {
	for _, name := range textAttributes {
		val, ok := fields[name]
		if !ok {
			continue
		}
		text := coerceString(val)
		field := model.TextField(text)
		if !field.Useful() {
			field = model.NotFoundField()
		}
		setIfBetter(entity, name, field)
	}

	for _, name := range listAttributes {
		val, ok := fields[name]
		if !ok {
			continue
		}
		items := coerceList(val)
		field := model.ListField(items...)
		if !field.Useful() {
			field = model.NotFoundField()
		}
		setIfBetter(entity, name, field)
	}

	for _, inv := range coerceList(fields["key_investors"]) {
		entity.AddInvestor(model.Investor{Name: inv})
	}
}

func setIfBetter(entity *model.Entity, name string, field model.Field) {
	if existing, ok := entity.Attr(name); ok && existing.Useful() && !field.Useful() {
		return
	}
	entity.SetAttr(name, field)
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		return strings.Join(coerceList(t), ", ")
	default:
		return ""
	}
}

func coerceList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := coerceString(item); s != "" && !strings.EqualFold(s, model.NotFoundText) {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" && !strings.EqualFold(part, model.NotFoundText) {
				out = append(out, part)
			}
		}
		return out
	default:
		return nil
	}
}
