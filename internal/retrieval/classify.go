// Package retrieval implements Components F-K: the query classifier and
// expander, the hybrid retriever, the RRF fuser and rescorer, the quality
// assessor and rescue path, the cross-encoder reranker, and the
// symbol-reference finder.
package retrieval

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Intent is the coarse query class driving channel weights and rescoring.
type Intent string

const (
	IntentExactName  Intent = "EXACT_NAME"
	IntentConfig     Intent = "CONFIG"
	IntentWiring     Intent = "WIRING"
	IntentFlow       Intent = "FLOW"
	IntentConceptual Intent = "CONCEPTUAL"
)

// Weights is a (semantic, lexical) channel-weight pair.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// camelBoundaryPattern matches an intra-word lower→upper transition, e.g.
// "getUserById" or "handleAuth".
var camelBoundaryPattern = regexp.MustCompile(`[a-z0-9][A-Z]`)

type classifyRule struct {
	intent  Intent
	weights Weights
	match   func(query string) bool
}

// classifyRules is the five-intent rule table, evaluated in order; the
// first matching rule wins.
var classifyRules = []classifyRule{
	{
		intent:  IntentExactName,
		weights: Weights{Semantic: 0.4, Lexical: 0.6},
		match: func(q string) bool {
			return camelBoundaryPattern.MatchString(q)
		},
	},
	{
		intent:  IntentConfig,
		weights: Weights{Semantic: 0.5, Lexical: 0.5},
		match: containsAny("config", "setup", "routing", "providers", "configuration", "bootstrap"),
	},
	{
		intent:  IntentWiring,
		weights: Weights{Semantic: 0.5, Lexical: 0.5},
		match: containsAny("provide", "inject", "dependency", "register", "wire", "bootstrap", "module"),
	},
	{
		intent:  IntentFlow,
		weights: Weights{Semantic: 0.6, Lexical: 0.4},
		match: containsAny("navigate", "redirect", "route", "handle", "process", "execute", "trigger", "dispatch"),
	},
}

var conceptualWeights = Weights{Semantic: 0.7, Lexical: 0.3}

func containsAny(terms ...string) func(string) bool {
	return func(q string) bool {
		lower := strings.ToLower(q)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}
}

// Classify maps a query to an intent and its default channel weights. A
// caller-supplied override (non-zero Weights) takes precedence over the
// table in the retriever, not here — Classify always returns the table
// default for its intent.
func Classify(query string) (Intent, Weights) {
	for _, rule := range classifyRules {
		if rule.match(query) {
			return rule.intent, rule.weights
		}
	}
	return IntentConceptual, conceptualWeights
}

// DefaultClassifierCacheSize bounds the memoized classifications:
// repeated queries (an IDE
// re-running the same search as a user types, a CLI session re-issuing a
// prior query) are common enough to cache, even though the rule table
// itself is cheap to re-run.
const DefaultClassifierCacheSize = 256

type classification struct {
	intent  Intent
	weights Weights
}

// ClassifierCache memoizes Classify by raw query string.
type ClassifierCache struct {
	cache *lru.Cache[string, classification]
}

// NewClassifierCache builds a cache holding up to size entries. size<=0
// falls back to DefaultClassifierCacheSize.
func NewClassifierCache(size int) *ClassifierCache {
	if size <= 0 {
		size = DefaultClassifierCacheSize
	}
	cache, _ := lru.New[string, classification](size)
	return &ClassifierCache{cache: cache}
}

// Classify returns Classify(query), serving from cache on a hit.
func (c *ClassifierCache) Classify(query string) (Intent, Weights) {
	if c == nil || c.cache == nil {
		return Classify(query)
	}
	if hit, ok := c.cache.Get(query); ok {
		return hit.intent, hit.weights
	}
	intent, weights := Classify(query)
	c.cache.Add(query, classification{intent: intent, weights: weights})
	return intent, weights
}
