package retrieval

import (
	"context"
	"log/slog"

	"github.com/codectx/ctxd/internal/model"
)

// Options controls the search pipeline: `{useSemanticSearch,
// useLexicalSearch, semanticWeight, keywordWeight, profile,
// enableQueryExpansion, enableLowConfidenceRescue, candidateFloor,
// enableReranker}`. A zero value of Semantic/Lexical means "not
// overridden" — the classifier's default weights for the query's intent
// apply.
type Options struct {
	UseSemanticSearch bool
	UseLexicalSearch  bool
	SemanticWeight    float64
	KeywordWeight     float64
	Profile           Profile

	EnableQueryExpansion      bool
	EnableLowConfidenceRescue bool
	CandidateFloor            int
	EnableReranker            bool
}

// DefaultOptions enables every stage except the reranker, which needs an
// explicit opt-in.
func DefaultOptions() Options {
	return Options{
		UseSemanticSearch:         true,
		UseLexicalSearch:          true,
		EnableQueryExpansion:      true,
		EnableLowConfidenceRescue: true,
	}
}

// Engine composes the classifier, expander, hybrid retriever, fuser,
// rescorer, quality assessor, and reranker into the single `search`
// entry point.
type Engine struct {
	retriever   *HybridRetriever
	sidecar     sidecarSignals
	encoder     CrossEncoder
	logger      *slog.Logger
	rrfConstant float64
	classifier  *ClassifierCache
}

// NewEngine builds a query engine over a loaded retriever and sidecar.
// encoder and logger may be nil; a nil encoder disables reranking
// regardless of options. rrfConstant is the RRF smoothing parameter k;
// 0 falls back to the default value of 60.
func NewEngine(retriever *HybridRetriever, sidecar sidecarSignals, encoder CrossEncoder, logger *slog.Logger, rrfConstant float64) *Engine {
	return &Engine{
		retriever:   retriever,
		sidecar:     sidecar,
		encoder:     encoder,
		logger:      logger,
		rrfConstant: rrfConstant,
		classifier:  NewClassifierCache(0),
	}
}

// Result is one enriched, scored hit returned to the caller.
type Result struct {
	Chunk      *model.Chunk
	Score      float64
	Snippet    string
	Trend      model.Trend
	Centrality float64
}

// Outcome is the full result of a Search call: the final result list plus
// the quality assessment that produced it (primary or rescued).
type Outcome struct {
	Results    []Result
	Assessment Assessment
	Rescued    bool
}

// Search runs the full classify/expand/retrieve/fuse/rescore/rescue/rerank
// pipeline for query and returns up to limit results.
func (e *Engine) Search(ctx context.Context, query string, limit int, filters Filters, opts Options) (Outcome, error) {
	if limit <= 0 {
		limit = 5
	}

	intent, weights := e.classifier.Classify(query)
	if opts.SemanticWeight > 0 || opts.KeywordWeight > 0 {
		weights = Weights{Semantic: opts.SemanticWeight, Lexical: opts.KeywordWeight}
	}
	if !opts.UseSemanticSearch {
		weights.Semantic = 0
	}
	if !opts.UseLexicalSearch {
		weights.Lexical = 0
	}

	variants := []model.QueryVariant{{Query: query, Weight: 1.0}}
	if opts.EnableQueryExpansion {
		variants = Expand(query)
	}

	primaryCandidates, primaryAssess, err := e.runOnce(ctx, query, variants, intent, weights, limit, filters, opts)
	if err != nil {
		return Outcome{}, err
	}

	rescued := false
	finalCandidates, finalAssess := primaryCandidates, primaryAssess
	if opts.EnableLowConfidenceRescue && primaryAssess.Status == StatusLowConfidence {
		full := Expand(query)
		if len(full) >= 3 {
			rescueVariants := full[1:3]
			rescueCandidates, rescueAssess, rescueErr := e.runOnce(ctx, query, rescueVariants, intent, weights, limit, filters, opts)
			if rescueErr == nil && ShouldSwapToRescue(primaryAssess, rescueAssess) {
				finalCandidates, finalAssess, rescued = rescueCandidates, rescueAssess, true
			}
		}
	}

	finalCandidates = Rerank(ctx, e.encoder, query, finalCandidates, opts.EnableReranker, e.logger)

	results := make([]Result, 0, len(finalCandidates))
	for _, c := range finalCandidates {
		results = append(results, Result{
			Chunk:      c.Chunk,
			Score:      c.Score,
			Snippet:    EnrichSnippet(c.Chunk),
			Trend:      c.Trend,
			Centrality: c.Centrality,
		})
	}

	return Outcome{Results: results, Assessment: finalAssess, Rescued: rescued}, nil
}

func (e *Engine) runOnce(ctx context.Context, query string, variants []model.QueryVariant, intent Intent, weights Weights, limit int, filters Filters, opts Options) ([]*Candidate, Assessment, error) {
	semantic, lexical, touched, err := e.retriever.Retrieve(ctx, variants, weights, limit, filters)
	if err != nil {
		return nil, Assessment{}, err
	}

	variantWeights := make([]float64, len(variants))
	for i, v := range variants {
		variantWeights[i] = v.Weight
	}

	candidates := Fuse(semantic, lexical, touched, weights, variantWeights, query, e.rrfConstant)

	floor := opts.CandidateFloor
	if floor <= 0 {
		floor = limit
	}

	rescoreCtx := RescoreContext{
		Query:       query,
		Intent:      intent,
		Profile:     opts.Profile,
		QueryTokens: tokenize(query),
		Sidecar:     e.sidecar,
	}
	candidates = Rescore(candidates, rescoreCtx)
	candidates = Dedup(candidates, floor)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	assessment := Assess(query, candidates)
	return candidates, assessment, nil
}
