package retrieval

import "github.com/codectx/ctxd/internal/model"

// Filters restricts retrieval by chunk metadata equality (framework,
// language, component type, layer) and tag membership, applied inside each
// channel.
type Filters struct {
	Framework     string
	Language      string
	ComponentType string
	Layer         string
	Tags          []string
}

func (f Filters) matchesTags(chunk *model.Chunk) bool {
	if len(f.Tags) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(chunk.Tags))
	for _, t := range chunk.Tags {
		have[t] = struct{}{}
	}
	for _, want := range f.Tags {
		if _, ok := have[want]; !ok {
			return false
		}
	}
	return true
}

func (f Filters) matches(chunk *model.Chunk) bool {
	if f.Framework != "" && chunk.Framework != f.Framework {
		return false
	}
	if f.Language != "" && chunk.Language != f.Language {
		return false
	}
	if f.ComponentType != "" && chunk.ComponentType != f.ComponentType {
		return false
	}
	if f.Layer != "" && chunk.Layer != f.Layer {
		return false
	}
	return f.matchesTags(chunk)
}

// rankWeight is one (channel, variant) contribution to a chunk's fused
// score: its 0-indexed rank in that list, and the effective weight
// (channel_weight * variant_weight) it carries.
type rankWeight struct {
	rank   int
	weight float64
}

// Candidate is a chunk under consideration for the final result set,
// carrying every signal the fuser and rescorer need.
type Candidate struct {
	Chunk *model.Chunk

	semanticHits []rankWeight
	lexicalHits  []rankWeight

	RRFScore float64
	Score    float64

	Trend          model.Trend
	PatternWarning string
	Centrality     float64
}
