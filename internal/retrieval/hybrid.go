package retrieval

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codectx/ctxd/internal/embedadapter"
	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/indexstore"
	"github.com/codectx/ctxd/internal/model"
)

// exact-match rank boosts, clamped to 1.0.
const (
	boostComponentName = 0.3
	boostFileName      = 0.2
	boostPathSubstring = 0.1
)

// HybridRetriever fans a set of query variants out across the semantic and
// lexical channels and accumulates per-chunk rank/weight contributions
// across N weighted variants.
type HybridRetriever struct {
	chunks   map[string]*model.Chunk
	fuzzy    *indexstore.FuzzyIndex
	vectors  *indexstore.VectorStore
	embedder embedadapter.Embedder
}

// NewHybridRetriever builds a retriever over a fully loaded chunk set.
func NewHybridRetriever(chunks []*model.Chunk, fuzzy *indexstore.FuzzyIndex, vectors *indexstore.VectorStore, embedder embedadapter.Embedder) *HybridRetriever {
	byID := make(map[string]*model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}
	return &HybridRetriever{chunks: byID, fuzzy: fuzzy, vectors: vectors, embedder: embedder}
}

// candidateLimit is the per-(channel,variant) retrieval width.
func candidateLimit(limit int) int {
	if v := 2 * limit; v > 30 {
		return v
	}
	return 30
}

// variantResult is one variant's two-channel outcome, collected from its own
// goroutine and merged back under a single lock.
type variantResult struct {
	variant model.QueryVariant
	semHits []indexstore.VectorHit
	lexHits []lexicalHit
}

// Retrieve runs the variants concurrently, one goroutine per variant that
// queries the semantic and then the lexical channel, and returns the per-channel rank/weight accumulation maps plus every chunk
// touched, keyed by chunk ID.
func (h *HybridRetriever) Retrieve(ctx context.Context, variants []model.QueryVariant, weights Weights, limit int, filters Filters) (semantic, lexical map[string][]rankWeight, touched map[string]*model.Chunk, err error) {
	semantic = make(map[string][]rankWeight)
	lexical = make(map[string][]rankWeight)
	touched = make(map[string]*model.Chunk)

	limitN := candidateLimit(limit)

	results := make([]variantResult, len(variants))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, variant := range variants {
		i, variant := i, variant
		g.Go(func() error {
			semHits, semErr := h.semanticChannel(gctx, variant.Query, limitN, filters)
			if semErr != nil {
				return semErr
			}
			lexHits, lexErr := h.lexicalChannel(variant.Query, limitN, filters)
			if lexErr != nil {
				return lexErr
			}
			mu.Lock()
			results[i] = variantResult{variant: variant, semHits: semHits, lexHits: lexHits}
			mu.Unlock()
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		return nil, nil, nil, waitErr
	}

	for _, res := range results {
		for rank, hit := range res.semHits {
			w := weights.Semantic * res.variant.Weight
			semantic[hit.ChunkID] = append(semantic[hit.ChunkID], rankWeight{rank: rank, weight: w})
			touched[hit.ChunkID] = h.chunks[hit.ChunkID]
		}
		for rank, hit := range res.lexHits {
			w := weights.Lexical * res.variant.Weight
			lexical[hit.chunkID] = append(lexical[hit.chunkID], rankWeight{rank: rank, weight: w})
			touched[hit.chunkID] = h.chunks[hit.chunkID]
		}
	}

	return semantic, lexical, touched, nil
}

// semanticChannel embeds the variant query and runs cosine-kNN. A
// Corrupted vector store propagates; any other failure degrades the
// channel to empty.
func (h *HybridRetriever) semanticChannel(ctx context.Context, query string, limit int, filters Filters) ([]indexstore.VectorHit, error) {
	if h.vectors == nil || h.embedder == nil {
		return nil, nil
	}
	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		if errs.IsCorrupted(err) {
			return nil, err
		}
		return nil, nil
	}
	hits, err := h.vectors.CosineKNN(ctx, vec, limit, indexstore.VectorFilters{
		Framework:     filters.Framework,
		ComponentType: filters.ComponentType,
		Layer:         filters.Layer,
		Language:      filters.Language,
	})
	if err != nil {
		if errs.IsCorrupted(err) || indexstore.IsCorruptedStorageError(err) {
			return nil, err
		}
		return nil, nil
	}
	return hits, nil
}

// lexicalHit carries the fuzzy-match similarity plus the exact-match boosts,
// used only to reorder the channel list; the boosts never feed the final
// fused score.
type lexicalHit struct {
	chunkID string
	boosted float64
}

func (h *HybridRetriever) lexicalChannel(query string, limit int, filters Filters) ([]lexicalHit, error) {
	if h.fuzzy == nil {
		return nil, nil
	}
	hits, err := h.fuzzy.Search(query, limit*2)
	if err != nil {
		if errs.IsCorrupted(err) {
			return nil, err
		}
		return nil, nil
	}

	lowerQuery := strings.ToLower(query)
	var filtered []lexicalHit
	for _, hit := range hits {
		chunk := h.chunks[hit.ChunkID]
		if chunk == nil || !filters.matches(chunk) {
			continue
		}
		boosted := hit.Similarity
		if strings.EqualFold(chunk.ComponentName, query) {
			boosted += boostComponentName
		}
		base := strings.ToLower(baseName(chunk.RelPath))
		if base == lowerQuery || strings.TrimSuffix(base, ext(base)) == lowerQuery {
			boosted += boostFileName
		}
		if strings.Contains(strings.ToLower(chunk.RelPath), lowerQuery) {
			boosted += boostPathSubstring
		}
		if boosted > 1.0 {
			boosted = 1.0
		}
		filtered = append(filtered, lexicalHit{chunkID: hit.ChunkID, boosted: boosted})
	}

	sortLexicalHits(filtered)
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func sortLexicalHits(hits []lexicalHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].boosted > hits[j-1].boosted; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func ext(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}
