package retrieval

import (
	"regexp"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// stopWords is the fixed exclusion set for term tokenization.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "to": {}, "of": {}, "for": {}, "and": {},
	"or": {}, "with": {}, "in": {}, "on": {}, "by": {}, "how": {}, "are": {},
	"is": {}, "after": {}, "before": {},
}

var termPattern = regexp.MustCompile(`[A-Za-z0-9_]+`)

// hintRule associates a family of query terms with a pool of related terms
// to pull into the expansion: auth, routing, config, authorization,
// interceptor/middleware, theming/upload families.
type hintRule struct {
	triggers []string
	terms    []string
}

var hintRules = []hintRule{
	{
		triggers: []string{"auth", "login", "signin", "session", "token"},
		terms:    []string{"auth", "authentication", "login", "session", "token", "credential"},
	},
	{
		triggers: []string{"route", "routing", "navigate", "redirect"},
		terms:    []string{"route", "router", "routing", "navigate", "redirect", "path"},
	},
	{
		triggers: []string{"config", "configuration", "setup", "bootstrap"},
		terms:    []string{"config", "configuration", "settings", "environment", "bootstrap", "setup"},
	},
	{
		triggers: []string{"authorization", "permission", "role", "access"},
		terms:    []string{"authorization", "permission", "role", "access", "policy", "guard"},
	},
	{
		triggers: []string{"interceptor", "middleware", "filter"},
		terms:    []string{"interceptor", "middleware", "filter", "pipeline", "handler"},
	},
	{
		triggers: []string{"theme", "theming", "style", "upload"},
		terms:    []string{"theme", "theming", "style", "upload", "asset", "media"},
	},
}

// Expand derives weighted query variants: the original query at weight
// 1.0, plus up to two hint-enriched rewrites.
func Expand(query string) []model.QueryVariant {
	variants := []model.QueryVariant{{Query: query, Weight: 1.0}}

	terms := tokenize(query)
	added := addedHintTerms(query, terms)
	n := len(added)

	if n >= 1 {
		end := 6
		if end > n {
			end = n
		}
		variants = append(variants, model.QueryVariant{
			Query:  query + " " + strings.Join(added[:end], " "),
			Weight: 0.35,
		})
	}
	if n >= 2 && n-6 >= 6 {
		end := 12
		if end > n {
			end = n
		}
		variants = append(variants, model.QueryVariant{
			Query:  query + " " + strings.Join(added[6:end], " "),
			Weight: 0.25,
		})
	}

	return variants
}

func tokenize(query string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range termPattern.FindAllString(query, -1) {
		if len(m) <= 2 {
			continue
		}
		lower := strings.ToLower(m)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		out[lower] = struct{}{}
	}
	return out
}

// addedHintTerms returns the ordered, deduped list of hint-rule terms not
// already present among the query's own terms, for every rule a term in the
// query triggers.
func addedHintTerms(query string, queryTerms map[string]struct{}) []string {
	lower := strings.ToLower(query)
	seen := make(map[string]struct{}, len(queryTerms))
	for t := range queryTerms {
		seen[t] = struct{}{}
	}

	var added []string
	for _, rule := range hintRules {
		triggered := false
		for _, trig := range rule.triggers {
			if strings.Contains(lower, trig) {
				triggered = true
				break
			}
		}
		if !triggered {
			continue
		}
		for _, term := range rule.terms {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			added = append(added, term)
		}
	}
	return added
}
