package retrieval

import "github.com/codectx/ctxd/internal/model"

// AssessStatus is the quality assessor's confidence verdict.
type AssessStatus string

const (
	StatusOK            AssessStatus = "ok"
	StatusLowConfidence AssessStatus = "low_confidence"
)

// LowConfidenceTopScore is the top-score floor below which a result set is
// judged low-confidence and becomes a rescue candidate.
const LowConfidenceTopScore = 0.25

// Assessment is the quality assessor's output.
type Assessment struct {
	Status     AssessStatus
	Confidence float64
	NextSteps  []string
}

// Assess heuristically judges a result set's confidence: the set is
// "low_confidence" when the top score is below LowConfidenceTopScore or the
// top results are dominated by test/markdown files for a non-test query, and
// "ok" otherwise. Score spread and path/query token overlap only raise the
// Confidence value; they do not change the status.
func Assess(query string, candidates []*Candidate) Assessment {
	if len(candidates) == 0 {
		return Assessment{
			Status:     StatusLowConfidence,
			Confidence: 0,
			NextSteps:  []string{"broaden the query", "remove filters", "try a related symbol name"},
		}
	}

	top := candidates[0].Score
	spread := 0.0
	if len(candidates) > 1 {
		spread = top - candidates[len(candidates)/2].Score
	}

	overlap := false
	queryTokens := tokenize(query)
	for _, c := range candidates {
		if tokenOverlapCount(queryTokens, c.Chunk.RelPath) > 0 {
			overlap = true
			break
		}
	}

	specDominated := !IsTestingRelatedQuery(query) && specDominatedSet(candidates)

	confidence := confidenceScore(top, spread, overlap)

	if top < LowConfidenceTopScore || specDominated {
		return Assessment{
			Status:     StatusLowConfidence,
			Confidence: confidence,
			NextSteps:  []string{"broaden the query", "expand terms", "search by symbol name instead"},
		}
	}
	return Assessment{Status: StatusOK, Confidence: confidence}
}

func confidenceScore(top, spread float64, overlap bool) float64 {
	confidence := top
	if spread > 0 {
		confidence += spread * 0.2
	}
	if overlap {
		confidence += 0.1
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}

// specDominatedSet reports whether the majority of the top results are
// documentation/spec files rather than implementation code.
func specDominatedSet(candidates []*Candidate) bool {
	n := len(candidates)
	if n == 0 {
		return false
	}
	top := candidates
	if n > 5 {
		top = candidates[:5]
	}
	docCount := 0
	for _, c := range top {
		if isTestFile(c.Chunk.RelPath) || c.Chunk.ContentType == model.ContentTypeMarkdown {
			docCount++
		}
	}
	return docCount*2 > len(top)
}

// ShouldSwapToRescue reports whether a rescue run (retrieval rerun with the
// two wider-expansion variants, indices 1 and 2 of Expand's output) should
// replace the primary result set.
func ShouldSwapToRescue(primary, rescue Assessment) bool {
	if primary.Status == StatusLowConfidence && rescue.Status == StatusOK && rescue.Confidence >= primary.Confidence {
		return true
	}
	if rescue.Confidence >= primary.Confidence+0.05 {
		return true
	}
	return false
}
