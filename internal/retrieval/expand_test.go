package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand_OriginalQueryAlwaysFirstAtFullWeight(t *testing.T) {
	variants := Expand("tell me about auth")
	require.NotEmpty(t, variants)
	assert.Equal(t, "tell me about auth", variants[0].Query)
	assert.Equal(t, 1.0, variants[0].Weight)
}

// TestExpand_AuthHintAddsExpansionVariant covers the auth-family hint rule:
// "auth" triggers authentication-related terms that are appended as a
// second, 0.35-weighted variant.
func TestExpand_AuthHintAddsExpansionVariant(t *testing.T) {
	variants := Expand("auth")
	require.Len(t, variants, 2)
	assert.Equal(t, 0.35, variants[1].Weight)
	assert.Contains(t, variants[1].Query, "auth ")
}

// TestExpand_NoHintMatchYieldsOnlyOriginal covers a query that triggers no
// hint rule: only the original variant should come back.
func TestExpand_NoHintMatchYieldsOnlyOriginal(t *testing.T) {
	variants := Expand("xyz qqq zzz")
	require.Len(t, variants, 1)
}

// TestExpand_SecondTierRequiresTwelvePlusAddedTerms verifies the n>=2 &&
// n-6>=6 condition of step 5: a query triggering multiple hint-rule
// families accumulates enough added terms to emit a third, 0.25-weighted
// variant.
func TestExpand_SecondTierRequiresTwelvePlusAddedTerms(t *testing.T) {
	variants := Expand("auth config route")
	// Three hint families (auth, config, routing) trigger here, each
	// contributing 5 net-new terms after dedup against the query's own
	// terms, for 15 added terms total -- comfortably past the n>=2 &&
	// n-6>=6 threshold for a third variant.
	require.Len(t, variants, 3)
	assert.Equal(t, 0.35, variants[1].Weight)
	assert.Equal(t, 0.25, variants[2].Weight)
}

func TestTokenize_ExcludesStopWordsAndShortTerms(t *testing.T) {
	terms := tokenize("the quick fox is on a ledge")
	_, hasThe := terms["the"]
	_, hasIs := terms["is"]
	_, hasOn := terms["on"]
	assert.False(t, hasThe)
	assert.False(t, hasIs)
	assert.False(t, hasOn)
	_, hasQuick := terms["quick"]
	_, hasFox := terms["fox"]
	_, hasLedge := terms["ledge"]
	assert.True(t, hasQuick)
	assert.True(t, hasFox)
	assert.True(t, hasLedge)
}
