package retrieval

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// Profile is the caller-supplied search profile, only ever consulted by
// the composition-root rescoring rule.
type Profile string

const (
	ProfileExplore  Profile = "explore"
	ProfileEdit     Profile = "edit"
	ProfileRefactor Profile = "refactor"
	ProfileMigrate  Profile = "migrate"
)

// definitionHeavyTypes mirrors chunker's component-type labels for
// type-like symbols ("type", "interface", "enum", "constant"), named here
// directly to avoid an import cycle back into chunker.
var definitionHeavyTypes = map[string]struct{}{
	"type": {}, "interface": {}, "enum": {}, "constant": {},
}

var definitionPathMarkers = []string{"/models/", "/interfaces/", "/types/", "/constants"}

var templateStyleExts = map[string]struct{}{
	".html": {}, ".scss": {}, ".css": {}, ".less": {}, ".sass": {}, ".styl": {},
}

var compositionRootPrefixes = []string{"main", "index", "bootstrap", "startup"}
var compositionRootPathMarkers = []string{"/routes/", "/routing/", "/router/", "/config/", "/providers/"}

var actionHowPattern = regexp.MustCompile(`(?i)^(how|what happens when|walk me through)\b`)

var wiringFlowQueryHints = []string{"wire", "wiring", "inject", "dependency", "provide", "register", "bootstrap", "flow", "navigate", "redirect", "dispatch", "handle"}

var flowGuardComponentTypes = map[string]struct{}{
	"service": {}, "guard": {}, "interceptor": {}, "middleware": {},
}

var moduleProviderConfigTypes = map[string]struct{}{
	"module": {}, "provider": {}, "config": {},
}

var actionBoostComponentTypes = map[string]struct{}{
	"service": {}, "component": {}, "interceptor": {}, "guard": {}, "module": {}, "resolver": {},
}

// RescoreContext carries the query-level signals the 12 rescoring rules
// consult, computed once per query rather than per candidate.
type RescoreContext struct {
	Query        string
	Intent       Intent
	Profile      Profile
	QueryTokens  map[string]struct{}
	Sidecar      sidecarSignals
}

// sidecarSignals is the subset of *intel.Sidecar the rescorer needs,
// expressed as an interface so retrieval doesn't import intel directly and
// tests can supply a fake.
type sidecarSignals interface {
	TrendFor(name string) model.Trend
	Centrality(relPath string) float64
}

func isActionHowQuery(query string) bool {
	return actionHowPattern.MatchString(strings.TrimSpace(query))
}

func isWiringFlowShapedQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, hint := range wiringFlowQueryHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func isDefinitionHeavy(chunk *model.Chunk) bool {
	if _, ok := definitionHeavyTypes[strings.ToLower(chunk.ComponentType)]; ok {
		return true
	}
	lower := strings.ToLower(chunk.RelPath)
	for _, marker := range definitionPathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isTemplateOrStylePath(relPath string) bool {
	_, ok := templateStyleExts[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

func isCompositionRoot(relPath string) bool {
	base := strings.ToLower(baseName(relPath))
	for _, prefix := range compositionRootPrefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	lower := strings.ToLower(relPath)
	for _, marker := range compositionRootPathMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func tokenOverlapCount(queryTokens map[string]struct{}, relPath string) int {
	pathTokens := tokenize(strings.ReplaceAll(relPath, "/", " "))
	count := 0
	for t := range queryTokens {
		if _, ok := pathTokens[t]; ok {
			count++
		}
	}
	return count
}

// Rescore applies the 12 ordered multiplicative rules to every candidate, in
// place, then the EXACT_NAME definition-first boost and a resort.
func Rescore(candidates []*Candidate, ctx RescoreContext) []*Candidate {
	for _, c := range candidates {
		applyRescoreRules(c, ctx)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	if ctx.Intent == IntentExactName {
		changed := false
		for _, c := range candidates {
			if strings.EqualFold(c.Chunk.SymbolName(), ctx.Query) {
				c.Score *= 1.15
				changed = true
			}
		}
		if changed {
			sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
		}
	}

	return candidates
}

func applyRescoreRules(c *Candidate, ctx RescoreContext) {
	chunk := c.Chunk
	actionQuery := isActionHowQuery(ctx.Query)
	wiringFlowShaped := isWiringFlowShapedQuery(ctx.Query)
	compositionRoot := isCompositionRoot(chunk.RelPath)
	componentType := strings.ToLower(chunk.ComponentType)

	// 1. Component-type known.
	if componentType != "" && componentType != "unknown" {
		c.Score *= 1.10
	}
	// 2. Layer known.
	layer := strings.ToLower(chunk.Layer)
	if layer != "" && layer != "unknown" {
		c.Score *= 1.10
	}
	// 3. Action/how query AND definition-heavy.
	if actionQuery && isDefinitionHeavy(chunk) {
		c.Score *= 0.82
	}
	// 4. Action/how query AND component-type in the service-ish set.
	if _, ok := actionBoostComponentTypes[componentType]; actionQuery && ok {
		c.Score *= 1.06
	}
	// 5. Intent FLOW/WIRING or action query, AND template/style path.
	if (ctx.Intent == IntentFlow || ctx.Intent == IntentWiring || actionQuery) && isTemplateOrStylePath(chunk.RelPath) {
		c.Score *= 0.75
	}
	// 6. Wiring/flow-shaped query, not explore profile, composition root.
	if wiringFlowShaped && ctx.Profile != ProfileExplore && compositionRoot {
		c.Score *= 1.12
	}
	// 7. Intent FLOW AND component-type in {service,guard,interceptor,middleware}.
	if _, ok := flowGuardComponentTypes[componentType]; ctx.Intent == IntentFlow && ok {
		c.Score *= 1.15
	}
	// 8. Intent CONFIG AND composition root.
	if ctx.Intent == IntentConfig && compositionRoot {
		c.Score *= 1.20
	}
	// 9. Intent WIRING AND component-type in {module,provider,config}; additional boost if composition root.
	if _, ok := moduleProviderConfigTypes[componentType]; ctx.Intent == IntentWiring && ok {
		c.Score *= 1.18
		if compositionRoot {
			c.Score *= 1.22
		}
	}
	// 10. Query/path token overlap >= 2.
	if tokenOverlapCount(ctx.QueryTokens, chunk.RelPath) >= 2 {
		c.Score *= 1.08
	}
	// 11. Centrality > 0.1.
	if ctx.Sidecar != nil {
		centrality := ctx.Sidecar.Centrality(chunk.RelPath)
		c.Centrality = centrality
		if centrality > 0.1 {
			c.Score *= 1 + 0.15*centrality
		}
		// 12. Trend.
		trend := ctx.Sidecar.TrendFor(chunk.ComponentName)
		c.Trend = trend
		switch trend {
		case model.TrendRising:
			c.Score *= 1.15
		case model.TrendDeclining:
			c.Score *= 0.90
		}
	}
}

// Dedup applies the file-level then symbol-level dedup passes and
// truncates to limit.
func Dedup(candidates []*Candidate, limit int) []*Candidate {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	var fileDeduped []*Candidate
	seenPaths := make(map[string]struct{})
	for _, c := range candidates {
		key := normalizePath(c.Chunk.RelPath)
		if _, ok := seenPaths[key]; ok {
			continue
		}
		seenPaths[key] = struct{}{}
		fileDeduped = append(fileDeduped, c)
		if limit > 0 && len(fileDeduped) >= limit {
			break
		}
	}

	seenSymbols := make(map[string]int) // symbol_path key -> index in out
	var out []*Candidate
	for _, c := range fileDeduped {
		key := symbolPathKey(c.Chunk)
		if key == "" {
			out = append(out, c)
			continue
		}
		if idx, ok := seenSymbols[key]; ok {
			if c.Score > out[idx].Score {
				out[idx] = c
			}
			continue
		}
		seenSymbols[key] = len(out)
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func symbolPathKey(chunk *model.Chunk) string {
	if len(chunk.SymbolPath) == 0 {
		return ""
	}
	return strings.Join(chunk.SymbolPath, ".")
}

// EnrichSnippet prepends a scope-header comment derived from symbol_path
// (or the best available identifier) to a chunk's content.
func EnrichSnippet(chunk *model.Chunk) string {
	header := scopeHeader(chunk)
	if header == "" {
		return chunk.Content
	}
	return fmt.Sprintf("// %s\n%s", header, chunk.Content)
}

func scopeHeader(chunk *model.Chunk) string {
	if len(chunk.SymbolPath) > 0 {
		return strings.Join(chunk.SymbolPath, ".")
	}
	if chunk.ComponentName != "" {
		return chunk.ComponentName
	}
	return ""
}
