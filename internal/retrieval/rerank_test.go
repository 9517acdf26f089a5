package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codectx/ctxd/internal/model"
)

type fakeCrossEncoder struct {
	scores map[string]float64
	err    error
}

func (f *fakeCrossEncoder) Score(_ context.Context, _, content string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[content], nil
}

func rerankCandidate(id string, score float64, content string) *Candidate {
	return &Candidate{Chunk: &model.Chunk{ID: id, Content: content}, Score: score}
}

func TestRerank_DisabledReturnsInputUnchanged(t *testing.T) {
	candidates := []*Candidate{rerankCandidate("a", 1.0, "a"), rerankCandidate("b", 0.99, "b")}
	out := Rerank(context.Background(), &fakeCrossEncoder{}, "q", candidates, false, nil)
	assert.Same(t, candidates[0], out[0])
}

func TestRerank_NilEncoderReturnsInputUnchanged(t *testing.T) {
	candidates := []*Candidate{rerankCandidate("a", 1.0, "a"), rerankCandidate("b", 0.99, "b")}
	out := Rerank(context.Background(), nil, "q", candidates, true, nil)
	assert.Same(t, candidates[0], out[0])
}

func TestRerank_SkipsWhenNotAmbiguous(t *testing.T) {
	candidates := []*Candidate{rerankCandidate("a", 1.0, "a"), rerankCandidate("b", 0.1, "b")}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"a": 0.1, "b": 0.9}}
	out := Rerank(context.Background(), encoder, "q", candidates, true, nil)
	assert.Same(t, candidates[0], out[0], "a wide score gap must not trigger reranking")
}

func TestRerank_ReordersAmbiguousTopCandidates(t *testing.T) {
	candidates := []*Candidate{rerankCandidate("a", 1.0, "a"), rerankCandidate("b", 0.98, "b")}
	encoder := &fakeCrossEncoder{scores: map[string]float64{"a": 0.2, "b": 0.9}}
	out := Rerank(context.Background(), encoder, "q", candidates, true, nil)
	assert.Equal(t, "b", out[0].Chunk.ID)
	assert.Equal(t, "a", out[1].Chunk.ID)
}

func TestRerank_EncoderErrorReturnsInputOrder(t *testing.T) {
	candidates := []*Candidate{rerankCandidate("a", 1.0, "a"), rerankCandidate("b", 0.98, "b")}
	encoder := &fakeCrossEncoder{err: errors.New("model unavailable")}
	out := Rerank(context.Background(), encoder, "q", candidates, true, nil)
	assert.Same(t, candidates[0], out[0])
	assert.Same(t, candidates[1], out[1])
}

func TestIsAmbiguous_FewerThanTwoCandidatesIsNotAmbiguous(t *testing.T) {
	assert.False(t, isAmbiguous(nil))
	assert.False(t, isAmbiguous([]*Candidate{rerankCandidate("a", 1.0, "a")}))
}

func TestIsAmbiguous_ZeroTopScoreIsNotAmbiguous(t *testing.T) {
	assert.False(t, isAmbiguous([]*Candidate{rerankCandidate("a", 0, "a"), rerankCandidate("b", 0, "b")}))
}
