package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/venture-scout/internal/model"
)

var requiredFields = []string{"founders", "funding_info", "location", "headquarters", "key_investors"}

func TestIncomplete(t *testing.T) {
	e := entity("Acme", "https://acme.com")
	e.SetAttr("location", model.TextField("Denver, CO"))

	// Only location set: four required fields missing.
	assert.True(t, Incomplete(&e, requiredFields, 3))

	e.SetAttr("founders", model.TextField("Dana Fox, Sam Ortiz"))
	e.SetAttr("funding_info", model.TextField("$4M seed led by Foundry Group"))

	// Two missing is under the threshold.
	assert.False(t, Incomplete(&e, requiredFields, 3))
}

func TestIncompleteCountsPlaceholders(t *testing.T) {
	e := entity("Acme", "https://acme.com")
	e.SetAttr("founders", model.TextField("Unknown"))
	e.SetAttr("funding_info", model.NotFoundField())
	e.SetAttr("location", model.TextField("n/a"))
	e.SetAttr("headquarters", model.TextField("Denver, CO"))
	e.SetAttr("key_investors", model.TextField("Foundry Group"))

	assert.True(t, Incomplete(&e, requiredFields, 3))
}

func TestEvictIncompleteCascades(t *testing.T) {
	s := newStore(t)

	complete := entity("Guild Education", "https://guildeducation.com")
	for _, f := range requiredFields {
		complete.SetAttr(f, model.TextField("present"))
	}
	sparse := entity("BrightWave", "https://brightwave.io")
	sparse.SetAttr("location", model.TextField("Boulder, CO"))

	require.NoError(t, s.Commit("extract", []model.Entity{complete, sparse}))
	require.NoError(t, s.Commit("report", []model.Entity{complete, sparse}))

	report, err := s.EvictIncomplete("extract", []string{"report"}, requiredFields, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"url:brightwave.io"}, report.Evicted)
	assert.Equal(t, 1, report.RemovedFrom["extract"])
	assert.Equal(t, 1, report.RemovedFrom["report"])
	assert.NotEmpty(t, report.BackupsMade)

	// Both artifacts agree on the surviving key set.
	extractSet, err := s.Load("extract")
	require.NoError(t, err)
	reportSet, err := s.Load("report")
	require.NoError(t, err)
	require.Len(t, extractSet, 1)
	require.Len(t, reportSet, 1)
	assert.Equal(t, extractSet[0].CanonicalKey, reportSet[0].CanonicalKey)
}

func TestEvictIncompleteNoopWhenAllComplete(t *testing.T) {
	s := newStore(t)

	complete := entity("Guild Education", "https://guildeducation.com")
	for _, f := range requiredFields {
		complete.SetAttr(f, model.TextField("present"))
	}
	require.NoError(t, s.Commit("extract", []model.Entity{complete}))

	report, err := s.EvictIncomplete("extract", nil, requiredFields, 3)
	require.NoError(t, err)
	assert.Empty(t, report.Evicted)
	assert.Empty(t, report.BackupsMade)
}

func TestEvictIncompleteMissingStage(t *testing.T) {
	s := newStore(t)
	_, err := s.EvictIncomplete("extract", nil, requiredFields, 3)
	assert.Error(t, err)
}
