package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venture-scout/internal/model"
)

func TestDefaultWeightsSumTo100(t *testing.T) {
	assert.Equal(t, 100, DefaultWeights().Total())
}

func fullEntity() *model.Entity {
	e := &model.Entity{Name: "BrightWave", URL: "https://brightwave.io"}
	e.SetAttr("business_model", model.TextField("B2B SaaS platform"))
	e.SetAttr("industries", model.ListField("fintech", "enterprise software"))
	e.SetAttr("company_stage", model.TextField("series-a"))
	e.SetAttr("has_technical_founders", model.TextField("true"))
	e.SetAttr("founder_count", model.TextField("2"))
	e.SetAttr("has_revenue", model.TextField("true"))
	e.SetAttr("customer_count", model.TextField("120"))
	e.SetAttr("growth_rate", model.TextField("300% YoY"))
	e.SetAttr("has_public_investors", model.TextField("true"))
	e.SetAttr("total_funding", model.TextField("$12M"))
	e.SetAttr("exit_potential", model.TextField("high"))
	e.Investors = []model.Investor{{Name: "Foundry Group"}}
	return e
}

func TestScorePerfectEntity(t *testing.T) {
	total, breakdown := Score(fullEntity(), DefaultConfig())

	assert.Equal(t, 100, total)
	assert.Equal(t, 20, breakdown["business_model"])
	assert.Equal(t, 15, breakdown["market_alignment"])
	assert.Equal(t, 10, breakdown["stage_fit"])
	assert.Equal(t, 10, breakdown["team_quality"])
	assert.Equal(t, 20, breakdown["traction"])
	assert.Equal(t, 15, breakdown["investor_backing"])
	assert.Equal(t, 10, breakdown["exit_potential"])
}

func TestScoreEmptyEntity(t *testing.T) {
	total, breakdown := Score(&model.Entity{Name: "Ghost", URL: model.UnresolvedURL}, DefaultConfig())
	assert.Zero(t, total)
	for criterion, pts := range breakdown {
		assert.Zero(t, pts, criterion)
	}
}

func TestScoreBreakdownSumsToTotal(t *testing.T) {
	entities := []*model.Entity{
		fullEntity(),
		{Name: "Ghost", URL: model.UnresolvedURL},
	}
	partial := &model.Entity{Name: "Partial"}
	partial.SetAttr("business_model", model.TextField("consulting"))
	partial.SetAttr("industries", model.ListField("healthcare"))
	partial.SetAttr("exit_potential", model.TextField("medium"))
	entities = append(entities, partial)

	cfg := DefaultConfig()
	for _, e := range entities {
		total, breakdown := Score(e, cfg)
		sum := 0
		for _, pts := range breakdown {
			sum += pts
		}
		assert.Equal(t, total, sum)
		assert.GreaterOrEqual(t, total, 0)
		assert.LessOrEqual(t, total, 100)
	}
}

func TestScoreBoundsUnderAlternateWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights = Weights{
		BusinessModel:   25,
		MarketAlignment: 5,
		StageFit:        15,
		TeamQuality:     15,
		Traction:        15,
		InvestorBacking: 15,
		ExitPotential:   10,
	}
	require.Equal(t, 100, cfg.Weights.Total())

	total, breakdown := Score(fullEntity(), cfg)
	assert.Equal(t, 100, total)
	for criterion, pts := range breakdown {
		assert.GreaterOrEqual(t, pts, 0, criterion)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	e := fullEntity()
	cfg := DefaultConfig()

	firstTotal, firstBreakdown := Score(e, cfg)
	for i := 0; i < 5; i++ {
		total, breakdown := Score(e, cfg)
		assert.Equal(t, firstTotal, total)
		assert.Equal(t, firstBreakdown, breakdown)
	}
}

func TestScoreBusinessModelHalfCredit(t *testing.T) {
	e := &model.Entity{Name: "Shop"}
	e.SetAttr("business_model", model.TextField("brick and mortar retail"))

	_, breakdown := Score(e, DefaultConfig())
	assert.Equal(t, 10, breakdown["business_model"])
}

func TestScoreSingleIndustryPartialCredit(t *testing.T) {
	e := &model.Entity{Name: "Solo"}
	e.SetAttr("industries", model.ListField("fintech"))

	_, breakdown := Score(e, DefaultConfig())
	assert.Equal(t, 8, breakdown["market_alignment"])
}

func TestScoreTractionSplits(t *testing.T) {
	e := &model.Entity{Name: "Growing"}
	e.SetAttr("has_revenue", model.TextField("true"))

	_, breakdown := Score(e, DefaultConfig())
	assert.Equal(t, 10, breakdown["traction"])

	e.SetAttr("customer_count", model.TextField("50"))
	_, breakdown = Score(e, DefaultConfig())
	assert.Equal(t, 15, breakdown["traction"])

	e.SetAttr("growth_rate", model.TextField("40% MoM"))
	_, breakdown = Score(e, DefaultConfig())
	assert.Equal(t, 20, breakdown["traction"])
}

func TestScoreExitPotentialTiers(t *testing.T) {
	e := &model.Entity{Name: "Exit"}

	e.SetAttr("exit_potential", model.TextField("high"))
	_, breakdown := Score(e, DefaultConfig())
	assert.Equal(t, 10, breakdown["exit_potential"])

	e.SetAttr("exit_potential", model.TextField("medium"))
	_, breakdown = Score(e, DefaultConfig())
	assert.Equal(t, 5, breakdown["exit_potential"])

	e.SetAttr("exit_potential", model.TextField("low"))
	_, breakdown = Score(e, DefaultConfig())
	assert.Zero(t, breakdown["exit_potential"])
}

func TestScoreStageFitUsesConfiguredTargets(t *testing.T) {
	e := &model.Entity{Name: "Late"}
	e.SetAttr("company_stage", model.TextField("series-d"))

	_, breakdown := Score(e, DefaultConfig())
	assert.Zero(t, breakdown["stage_fit"])

	cfg := DefaultConfig()
	cfg.TargetStages = append(cfg.TargetStages, "series-d")
	_, breakdown = Score(e, cfg)
	assert.Equal(t, 10, breakdown["stage_fit"])
}
