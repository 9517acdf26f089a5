package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codectx/ctxd/internal/model"
)

func TestAssess_EmptyResultsIsLowConfidence(t *testing.T) {
	a := Assess("anything", nil)
	assert.Equal(t, StatusLowConfidence, a.Status)
	assert.Equal(t, 0.0, a.Confidence)
	assert.NotEmpty(t, a.NextSteps)
}

func TestAssess_StrongTopScoreWithOverlapIsOK(t *testing.T) {
	candidates := []*Candidate{
		{Chunk: &model.Chunk{RelPath: "src/auth/login.go"}, Score: 0.8},
		{Chunk: &model.Chunk{RelPath: "src/other.go"}, Score: 0.2},
	}
	a := Assess("login", candidates)
	assert.Equal(t, StatusOK, a.Status)
	assert.Greater(t, a.Confidence, 0.0)
}

func TestAssess_WeakTopScoreIsLowConfidence(t *testing.T) {
	candidates := []*Candidate{
		{Chunk: &model.Chunk{RelPath: "src/a.go"}, Score: 0.1},
	}
	a := Assess("authentication flow", candidates)
	assert.Equal(t, StatusLowConfidence, a.Status)
}

// TestAssess_SpecDominatedSetIsLowConfidence: a majority-markdown top-5 for a
// non-test query is flagged low_confidence even with a strong top score.
func TestAssess_SpecDominatedSetIsLowConfidence(t *testing.T) {
	candidates := []*Candidate{
		{Chunk: &model.Chunk{RelPath: "docs/one.md", ContentType: model.ContentTypeMarkdown}, Score: 0.9},
		{Chunk: &model.Chunk{RelPath: "docs/two.md", ContentType: model.ContentTypeMarkdown}, Score: 0.8},
		{Chunk: &model.Chunk{RelPath: "docs/three.md", ContentType: model.ContentTypeMarkdown}, Score: 0.7},
		{Chunk: &model.Chunk{RelPath: "src/impl.go"}, Score: 0.6},
	}
	a := Assess("something conceptual", candidates)
	assert.Equal(t, StatusLowConfidence, a.Status)
}

func TestShouldSwapToRescue_LowConfidencePrimaryOKRescue(t *testing.T) {
	primary := Assessment{Status: StatusLowConfidence, Confidence: 0.2}
	rescue := Assessment{Status: StatusOK, Confidence: 0.25}
	assert.True(t, ShouldSwapToRescue(primary, rescue))
}

func TestShouldSwapToRescue_RescueMeaningfullyBetter(t *testing.T) {
	primary := Assessment{Status: StatusOK, Confidence: 0.5}
	rescue := Assessment{Status: StatusOK, Confidence: 0.56}
	assert.True(t, ShouldSwapToRescue(primary, rescue))
}

func TestShouldSwapToRescue_NoSwapWhenRescueNotBetter(t *testing.T) {
	primary := Assessment{Status: StatusOK, Confidence: 0.5}
	rescue := Assessment{Status: StatusOK, Confidence: 0.51}
	assert.False(t, ShouldSwapToRescue(primary, rescue))
}
