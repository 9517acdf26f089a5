package indexer

import (
	"path"
	"sort"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// buildSidecar derives the intelligence sidecar from the final chunk set for
// a build, comparing pattern frequencies against the previous sidecar (if
// any) to classify each pattern's trend. The import graph and golden-files
// heuristic are computed fresh each build, same as the chunk and vector
// stores; only trend classification carries state across builds.
func buildSidecar(chunks []*model.Chunk, previous *model.IntelligenceSidecar) *model.IntelligenceSidecar {
	byFile := make(map[string][]*model.Chunk)
	known := make(map[string]string) // lookup key -> rel path
	for _, c := range chunks {
		byFile[c.RelPath] = append(byFile[c.RelPath], c)
		known[path.Base(strings.TrimSuffix(c.RelPath, path.Ext(c.RelPath)))] = c.RelPath
		if c.ComponentName != "" {
			known[c.ComponentName] = c.RelPath
		}
	}

	importGraph := make(map[string][]string)
	for relPath, fileChunks := range byFile {
		seen := make(map[string]struct{})
		var targets []string
		for _, c := range fileChunks {
			for _, imp := range c.Imports {
				target := resolveImport(imp, known)
				if target == "" || target == relPath {
					continue
				}
				if _, dup := seen[target]; dup {
					continue
				}
				seen[target] = struct{}{}
				targets = append(targets, target)
			}
		}
		if len(targets) > 0 {
			sort.Strings(targets)
			importGraph[relPath] = targets
		}
	}

	patterns := buildPatterns(chunks, previous)
	goldenFiles := buildGoldenFiles(byFile)

	return &model.IntelligenceSidecar{
		Patterns:    patterns,
		ImportGraph: importGraph,
		GoldenFiles: goldenFiles,
	}
}

func resolveImport(imp string, known map[string]string) string {
	base := path.Base(strings.TrimSuffix(imp, path.Ext(imp)))
	if rel, ok := known[base]; ok {
		return rel
	}
	if rel, ok := known[imp]; ok {
		return rel
	}
	return ""
}

func buildPatterns(chunks []*model.Chunk, previous *model.IntelligenceSidecar) map[string]model.PatternEntry {
	type tagStat struct {
		count    int
		examples []string
	}
	stats := make(map[string]*tagStat)
	for _, c := range chunks {
		for _, tag := range c.Tags {
			st, ok := stats[tag]
			if !ok {
				st = &tagStat{}
				stats[tag] = st
			}
			st.count++
			if len(st.examples) < 3 {
				st.examples = append(st.examples, c.RelPath)
			}
		}
	}

	entries := make(map[string]model.PatternEntry, len(stats))
	for name, st := range stats {
		trend := model.TrendStable
		if previous != nil {
			if prevEntry, ok := previous.Patterns[name]; ok {
				switch {
				case st.count > prevEntry.Primary.Frequency:
					trend = model.TrendRising
				case st.count < prevEntry.Primary.Frequency:
					trend = model.TrendDeclining
				}
			} else {
				trend = model.TrendRising
			}
		}
		example := ""
		if len(st.examples) > 0 {
			example = st.examples[0]
		}
		entries[name] = model.PatternEntry{
			Primary: model.PatternInstance{
				Name:             name,
				Frequency:        st.count,
				Trend:            trend,
				CanonicalExample: example,
			},
		}
	}
	return entries
}

// buildGoldenFiles scores files by inverse average complexity: simpler,
// well-factored files surface as exemplars for the "canonical example"
// role golden files play in ranking.
func buildGoldenFiles(byFile map[string][]*model.Chunk) []model.GoldenFile {
	type acc struct {
		sum   float64
		count int
	}
	scores := make(map[string]*acc)
	for relPath, fileChunks := range byFile {
		for _, c := range fileChunks {
			if c.Complexity == nil {
				continue
			}
			a, ok := scores[relPath]
			if !ok {
				a = &acc{}
				scores[relPath] = a
			}
			a.sum += *c.Complexity
			a.count++
		}
	}

	golden := make([]model.GoldenFile, 0, len(scores))
	for relPath, a := range scores {
		if a.count == 0 {
			continue
		}
		avg := a.sum / float64(a.count)
		golden = append(golden, model.GoldenFile{Path: relPath, Score: 1.0 / (1.0 + avg)})
	}
	sort.Slice(golden, func(i, j int) bool {
		if golden[i].Score != golden[j].Score {
			return golden[i].Score > golden[j].Score
		}
		return golden[i].Path < golden[j].Path
	})
	if len(golden) > 20 {
		golden = golden[:20]
	}
	return golden
}
