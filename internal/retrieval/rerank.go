package retrieval

import (
	"context"
	"log/slog"
	"sort"
)

// ambiguityMargin is the relative score gap below which the top two results
// are considered ambiguous and worth sending through the reranker.
const ambiguityMargin = 0.05

// CrossEncoder scores a (query, content) pair's relevance. Implementations
// wrap a model-backed reranking provider; ctxd depends only on this
// interface, mirroring the Embedder boundary in embedadapter.
type CrossEncoder interface {
	Score(ctx context.Context, query, content string) (float64, error)
}

// isAmbiguous reports whether the top two candidates are close enough that
// reranking could plausibly change their order.
func isAmbiguous(candidates []*Candidate) bool {
	if len(candidates) < 2 {
		return false
	}
	top, second := candidates[0].Score, candidates[1].Score
	if top <= 0 {
		return false
	}
	return (top-second)/top <= ambiguityMargin
}

// Rerank invokes encoder over the top candidates when enabled and the
// result set is ambiguous, reordering in place. Any encoder failure is
// logged and the input order is returned unchanged.
func Rerank(ctx context.Context, encoder CrossEncoder, query string, candidates []*Candidate, enabled bool, logger *slog.Logger) []*Candidate {
	if !enabled || encoder == nil || !isAmbiguous(candidates) {
		return candidates
	}

	type scored struct {
		candidate *Candidate
		relevance float64
	}
	out := make([]scored, len(candidates))
	for i, c := range candidates {
		rel, err := encoder.Score(ctx, query, c.Chunk.Content)
		if err != nil {
			if logger != nil {
				logger.Warn("reranker failed, returning input order", "error", err)
			}
			return candidates
		}
		out[i] = scored{candidate: c, relevance: rel}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].relevance > out[j].relevance })
	reordered := make([]*Candidate, len(out))
	for i, s := range out {
		reordered[i] = s.candidate
	}
	return reordered
}
