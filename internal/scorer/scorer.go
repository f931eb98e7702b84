// Package scorer computes the deterministic fit score for an enriched
// entity. Scoring is pure: no I/O, no randomness, identical input always
// yields the identical total and breakdown.
package scorer

import (
	"strconv"
	"strings"

	"github.com/sells-group/venture-scout/internal/model"
)

// Weights assigns points to each scoring criterion. The weights are
// configuration and must sum to 100; that contract is asserted in tests and
// validated at config load, not re-checked per call.
type Weights struct {
	BusinessModel   int `yaml:"business_model" mapstructure:"business_model"`
	MarketAlignment int `yaml:"market_alignment" mapstructure:"market_alignment"`
	StageFit        int `yaml:"stage_fit" mapstructure:"stage_fit"`
	TeamQuality     int `yaml:"team_quality" mapstructure:"team_quality"`
	Traction        int `yaml:"traction" mapstructure:"traction"`
	InvestorBacking int `yaml:"investor_backing" mapstructure:"investor_backing"`
	ExitPotential   int `yaml:"exit_potential" mapstructure:"exit_potential"`
}

// DefaultWeights mirrors the investment thesis this pipeline was built for.
func DefaultWeights() Weights {
	return Weights{
		BusinessModel:   20,
		MarketAlignment: 15,
		StageFit:        10,
		TeamQuality:     10,
		Traction:        20,
		InvestorBacking: 15,
		ExitPotential:   10,
	}
}

// Total returns the sum of all criterion weights.
func (w Weights) Total() int {
	return w.BusinessModel + w.MarketAlignment + w.StageFit +
		w.TeamQuality + w.Traction + w.InvestorBacking + w.ExitPotential
}

// Config holds the weights plus the injectable keyword lists the criteria
// match against.
type Config struct {
	Weights           Weights  `yaml:"weights" mapstructure:"weights"`
	ScalableModels    []string `yaml:"scalable_models" mapstructure:"scalable_models"`
	TargetStages      []string `yaml:"target_stages" mapstructure:"target_stages"`
	CustomerThreshold int      `yaml:"customer_threshold" mapstructure:"customer_threshold"`
}

// DefaultConfig returns the baseline scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		ScalableModels:    []string{"saas", "marketplace", "platform", "subscription"},
		TargetStages:      []string{"seed", "series-a", "series-b"},
		CustomerThreshold: 10,
	}
}

// Score evaluates every criterion in a fixed order and returns the total in
// [0, 100] plus the per-criterion breakdown.
func Score(e *model.Entity, cfg Config) (int, map[string]int) {
	w := cfg.Weights
	breakdown := map[string]int{
		"business_model":   scoreBusinessModel(e, w.BusinessModel, cfg.ScalableModels),
		"market_alignment": scoreMarketAlignment(e, w.MarketAlignment),
		"stage_fit":        scoreStageFit(e, w.StageFit, cfg.TargetStages),
		"team_quality":     scoreTeamQuality(e, w.TeamQuality),
		"traction":         scoreTraction(e, w.Traction, cfg.CustomerThreshold),
		"investor_backing": scoreInvestorBacking(e, w.InvestorBacking),
		"exit_potential":   scoreExitPotential(e, w.ExitPotential),
	}

	total := 0
	for _, pts := range breakdown {
		total += pts
	}
	return total, breakdown
}

// scoreBusinessModel awards full weight for a known scalable pattern, half
// weight for any stated model, zero when absent.
func scoreBusinessModel(e *model.Entity, weight int, scalable []string) int {
	bm := strings.ToLower(e.AttrText("business_model"))
	if bm == "" {
		return 0
	}
	for _, pattern := range scalable {
		if strings.Contains(bm, pattern) {
			return weight
		}
	}
	return weight / 2
}

// scoreMarketAlignment rewards multi-industry exposure: full weight for two
// or more tags, partial for one.
func scoreMarketAlignment(e *model.Entity, weight int) int {
	n := len(e.AttrList("industries"))
	switch {
	case n >= 2:
		return weight
	case n == 1:
		return weight - weight/2 // rounds up on odd weights, 8-of-15
	default:
		return 0
	}
}

func scoreStageFit(e *model.Entity, weight int, targets []string) int {
	stage := strings.ToLower(e.AttrText("company_stage"))
	if stage == "" {
		return 0
	}
	for _, target := range targets {
		if strings.Contains(stage, target) {
			return weight
		}
	}
	return 0
}

// scoreTeamQuality splits the weight between technical founders and a
// co-founder team.
func scoreTeamQuality(e *model.Entity, weight int) int {
	half := weight / 2
	pts := 0
	if attrBool(e, "has_technical_founders") {
		pts += half
	}
	if attrInt(e, "founder_count") >= 2 {
		pts += weight - half
	}
	return pts
}

// scoreTraction splits the weight across revenue, customer count, and a
// growth-rate figure containing a percentage.
func scoreTraction(e *model.Entity, weight int, customerThreshold int) int {
	revenuePart := weight / 2
	customerPart := weight / 4
	growthPart := weight - revenuePart - customerPart

	pts := 0
	if attrBool(e, "has_revenue") {
		pts += revenuePart
	}
	if attrInt(e, "customer_count") > customerThreshold {
		pts += customerPart
	}
	if growth := e.AttrText("growth_rate"); strings.Contains(growth, "%") {
		pts += growthPart
	}
	return pts
}

// scoreInvestorBacking splits the weight across having any investor, a
// notable/public investor, and a stated funding total.
func scoreInvestorBacking(e *model.Entity, weight int) int {
	third := weight / 3
	pts := 0
	if len(e.Investors) > 0 {
		pts += third
	}
	if attrBool(e, "has_public_investors") {
		pts += third
	}
	if e.AttrText("total_funding") != "" {
		pts += weight - 2*third
	}
	return pts
}

func scoreExitPotential(e *model.Entity, weight int) int {
	switch strings.ToLower(e.AttrText("exit_potential")) {
	case "high":
		return weight
	case "medium":
		return weight / 2
	default:
		return 0
	}
}

func attrBool(e *model.Entity, key string) bool {
	switch strings.ToLower(e.AttrText(key)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}

func attrInt(e *model.Entity, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(e.AttrText(key)))
	if err != nil {
		return 0
	}
	return n
}
