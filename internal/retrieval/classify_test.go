package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ExactNameOnCamelCase(t *testing.T) {
	intent, weights := Classify("getUserById")
	assert.Equal(t, IntentExactName, intent)
	assert.Equal(t, Weights{Semantic: 0.4, Lexical: 0.6}, weights)
}

func TestClassify_Config(t *testing.T) {
	intent, weights := Classify("application configuration setup")
	assert.Equal(t, IntentConfig, intent)
	assert.Equal(t, Weights{Semantic: 0.5, Lexical: 0.5}, weights)
}

func TestClassify_Wiring(t *testing.T) {
	intent, _ := Classify("inject dependency into module")
	assert.Equal(t, IntentWiring, intent)
}

func TestClassify_Flow(t *testing.T) {
	intent, weights := Classify("navigate after login")
	assert.Equal(t, IntentFlow, intent)
	assert.Equal(t, Weights{Semantic: 0.6, Lexical: 0.4}, weights)
}

func TestClassify_ConceptualFallback(t *testing.T) {
	intent, weights := Classify("user authentication flow overview")
	// "authentication" contains no trigger term from config/wiring/flow
	// tables and no camelCase boundary, so it falls through to conceptual.
	assert.Equal(t, IntentConceptual, intent)
	assert.Equal(t, Weights{Semantic: 0.7, Lexical: 0.3}, weights)
}

// TestClassify_FirstRuleWins checks rule-table ordering: a query matching
// both the EXACT_NAME camel-boundary pattern and a CONFIG trigger word
// resolves to EXACT_NAME since that rule is evaluated first.
func TestClassify_FirstRuleWins(t *testing.T) {
	intent, _ := Classify("loadConfig")
	assert.Equal(t, IntentExactName, intent)
}

func TestClassifierCache_ReturnsSameResultAsClassify(t *testing.T) {
	cache := NewClassifierCache(4)
	wantIntent, wantWeights := Classify("navigate after login")

	gotIntent, gotWeights := cache.Classify("navigate after login")
	assert.Equal(t, wantIntent, gotIntent)
	assert.Equal(t, wantWeights, gotWeights)

	// second call should be served from cache, same result
	gotIntent2, gotWeights2 := cache.Classify("navigate after login")
	assert.Equal(t, wantIntent, gotIntent2)
	assert.Equal(t, wantWeights, gotWeights2)
}

func TestClassifierCache_NilCacheFallsBackToClassify(t *testing.T) {
	var cache *ClassifierCache
	intent, weights := cache.Classify("navigate after login")
	assert.Equal(t, IntentFlow, intent)
	assert.Equal(t, Weights{Semantic: 0.6, Lexical: 0.4}, weights)
}
