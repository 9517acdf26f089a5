package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDetectCycles_TwoCycleBeforeThreeCycle: a 2-cycle
// a<->b and a 3-cycle c->d->e->c must both be found, the 2-cycle sorted
// first (shorter length, higher severity).
func TestDetectCycles_TwoCycleBeforeThreeCycle(t *testing.T) {
	importGraph := map[string][]string{
		"a": {"b"},
		"b": {"a"},
		"c": {"d"},
		"d": {"e"},
		"e": {"c"},
	}

	cycles := DetectCycles(importGraph, "")
	require.Len(t, cycles, 2)

	assert.ElementsMatch(t, []string{"a", "b"}, cycles[0].Nodes)
	assert.Equal(t, SeverityHigh, cycles[0].Severity)

	assert.Len(t, cycles[1].Nodes, 3)
	assert.Equal(t, SeverityMedium, cycles[1].Severity)
}

func TestDetectCycles_NoCyclesInDag(t *testing.T) {
	importGraph := map[string][]string{
		"a": {"b", "c"},
		"b": {"c"},
		"c": {},
	}
	assert.Empty(t, DetectCycles(importGraph, ""))
}

func TestDetectCycles_SelfImportIsMediumSeverity(t *testing.T) {
	importGraph := map[string][]string{
		"a": {"a"},
	}
	cycles := DetectCycles(importGraph, "")
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"a"}, cycles[0].Nodes)
	assert.Equal(t, SeverityMedium, cycles[0].Severity)
}

// TestDetectCycles_ScopeRestriction ensures a scope prefix excludes nodes
// (and therefore cycles) entirely outside that prefix.
func TestDetectCycles_ScopeRestriction(t *testing.T) {
	importGraph := map[string][]string{
		"src/a.go": {"src/b.go"},
		"src/b.go": {"src/a.go"},
		"lib/x.go": {"lib/y.go"},
		"lib/y.go": {"lib/x.go"},
	}

	cycles := DetectCycles(importGraph, "src/")
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"src/a.go", "src/b.go"}, cycles[0].Nodes)
}

// TestDetectCycles_LongCycleIsLowSeverity covers the length > 3 branch of
// severityFor.
func TestDetectCycles_LongCycleIsLowSeverity(t *testing.T) {
	importGraph := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"d"},
		"d": {"a"},
	}
	cycles := DetectCycles(importGraph, "")
	require.Len(t, cycles, 1)
	assert.Equal(t, SeverityLow, cycles[0].Severity)
}

// TestDetectCycles_EveryReciprocalEdgePairIsFound is a broader reciprocal-edge sweep over
// several independent reciprocal-edge pairs embedded in a larger graph.
func TestDetectCycles_EveryReciprocalEdgePairIsFound(t *testing.T) {
	importGraph := map[string][]string{
		"p1": {"p2"}, "p2": {"p1"},
		"q1": {"q2"}, "q2": {"q1"},
		"r1": {"r2", "r3"}, "r2": {}, "r3": {},
	}
	cycles := DetectCycles(importGraph, "")
	require.Len(t, cycles, 2)
	found := map[string]bool{}
	for _, c := range cycles {
		require.Len(t, c.Nodes, 2)
		found[c.Nodes[0]+","+c.Nodes[1]] = true
		found[c.Nodes[1]+","+c.Nodes[0]] = true
	}
	assert.True(t, found["p1,p2"])
	assert.True(t, found["q1,q2"])
}
