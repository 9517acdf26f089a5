package retrieval

import (
	"sort"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

const rrfK = 60.0

// testFileMarkers identify a chunk's relative path as test code, for the
// test-file gating step of fusion.
var testFileMarkers = []string{
	"_test.go", ".test.ts", ".test.tsx", ".test.js", ".test.jsx",
	".spec.ts", ".spec.tsx", ".spec.js", ".spec.jsx",
	"/test/", "/tests/", "/__tests__/", "/spec/",
}

func isTestFile(relPath string) bool {
	lower := strings.ToLower(relPath)
	for _, marker := range testFileMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// testingRelatedTerms backs the testing-related predicate, shared here
// since test-file gating and quality rescue both consult it.
var testingRelatedTerms = []string{
	"test", "tests", "testing", "spec", "specs", "unit", "e2e", "mock", "spy", "fixture",
	"jest", "mocha", "pytest", "junit", "vitest", "cypress", "playwright",
}

// IsTestingRelatedQuery reports whether query mentions testing or a common
// test-framework name.
func IsTestingRelatedQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, term := range testingRelatedTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Fuse combines the semantic and lexical rank/weight maps into RRF-scored
// candidates, applies test-file gating, and returns the merged candidate
// list. variantWeights must list every variant's Weight in the same order
// passed to HybridRetriever.Retrieve, used to compute the normalization max.
// rrfConstant is the RRF smoothing parameter k (60 by default;
// config.SearchConfig.RRFConstant carries the configured value). A zero
// rrfConstant falls back to 60.
func Fuse(semantic, lexical map[string][]rankWeight, chunks map[string]*model.Chunk, weights Weights, variantWeights []float64, query string, rrfConstant float64) []*Candidate {
	if rrfConstant <= 0 {
		rrfConstant = rrfK
	}

	ids := make(map[string]struct{}, len(semantic)+len(lexical))
	for id := range semantic {
		ids[id] = struct{}{}
	}
	for id := range lexical {
		ids[id] = struct{}{}
	}

	var totalVariantWeight float64
	for _, vw := range variantWeights {
		totalVariantWeight += vw * (weights.Semantic + weights.Lexical)
	}
	theoreticalMax := totalVariantWeight / rrfConstant
	if theoreticalMax <= 0 {
		theoreticalMax = 1
	}

	candidates := make([]*Candidate, 0, len(ids))
	for id := range ids {
		chunk := chunks[id]
		if chunk == nil {
			continue
		}
		c := &Candidate{Chunk: chunk, semanticHits: semantic[id], lexicalHits: lexical[id]}
		var rrf float64
		for _, hit := range c.semanticHits {
			rrf += hit.weight / (rrfConstant + float64(hit.rank))
		}
		for _, hit := range c.lexicalHits {
			rrf += hit.weight / (rrfConstant + float64(hit.rank))
		}
		c.RRFScore = rrf / theoreticalMax
		c.Score = c.RRFScore
		candidates = append(candidates, c)
	}

	// Ties break on chunk ID so the ordering is reproducible for a fixed
	// index snapshot regardless of map iteration order.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.ID < candidates[j].Chunk.ID
	})

	return gateTestFiles(candidates, query)
}

// gateTestFiles holds test files out of the ranking: when the query
// isn't testing-related, test-file candidates are held back and re-admitted
// (at most one, at half score) only if fewer than 3 implementation results
// survive.
func gateTestFiles(candidates []*Candidate, query string) []*Candidate {
	if IsTestingRelatedQuery(query) {
		return candidates
	}

	var impl, tests []*Candidate
	for _, c := range candidates {
		if isTestFile(c.Chunk.RelPath) {
			tests = append(tests, c)
		} else {
			impl = append(impl, c)
		}
	}

	implCount := countUniqueFiles(impl)
	if implCount >= 3 || len(tests) == 0 {
		return impl
	}

	readmitted := tests[0]
	readmitted.Score *= 0.5
	out := append(append([]*Candidate{}, impl...), readmitted)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func countUniqueFiles(candidates []*Candidate) int {
	seen := make(map[string]struct{})
	for _, c := range candidates {
		seen[normalizePath(c.Chunk.RelPath)] = struct{}{}
	}
	return len(seen)
}

func normalizePath(path string) string {
	return strings.ToLower(strings.TrimPrefix(path, "./"))
}
