// Package intel implements the intelligence sidecar: pattern
// trends and the internal import graph, persisted alongside a build and
// reloaded by the retriever to precompute ranking signals.
package intel

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// Sidecar is the loaded intelligence data plus the derived lookup structures
// the rescorer consults: declining/rising pattern-name sets, a
// declining-name -> guidance warning map, and a path -> centrality map.
type Sidecar struct {
	raw *model.IntelligenceSidecar

	decliningNames map[string]struct{}
	risingNames    map[string]struct{}
	warnings       map[string]string
	centrality     map[string]float64
}

// Save persists sidecar data to path as indented JSON.
func Save(path string, data *model.IntelligenceSidecar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create intelligence sidecar: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// Load reads a sidecar from path and precomputes the retriever's signal
// maps. An absent or malformed sidecar is NOT corruption:
// Load returns a usable empty Sidecar with trend/centrality disabled, and a
// boolean reporting whether real data was found.
func Load(path string) (*Sidecar, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return empty(), false
	}
	var raw model.IntelligenceSidecar
	if err := json.Unmarshal(data, &raw); err != nil {
		return empty(), false
	}
	return build(&raw), true
}

// relationshipsFile is the optional standalone import-graph artifact. When
// present it takes precedence over the graph embedded in the sidecar.
type relationshipsFile struct {
	ImportGraph map[string][]string `json:"importGraph"`
}

// SaveRelationships persists the import graph as its own artifact.
func SaveRelationships(path string, graph map[string][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create relationships sidecar: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(relationshipsFile{ImportGraph: graph})
}

// LoadRelationships reads the standalone import-graph artifact. Like the
// main sidecar, an absent or malformed file just means "no data".
func LoadRelationships(path string) (map[string][]string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var rel relationshipsFile
	if err := json.Unmarshal(data, &rel); err != nil || rel.ImportGraph == nil {
		return nil, false
	}
	return rel.ImportGraph, true
}

// WithImportGraph returns a copy of s whose import graph (and the
// centrality map derived from it) is replaced by graph. Pattern and
// golden-file data carry over untouched.
func (s *Sidecar) WithImportGraph(graph map[string][]string) *Sidecar {
	raw := *s.raw
	raw.ImportGraph = graph
	return build(&raw)
}

func empty() *Sidecar {
	return build(&model.IntelligenceSidecar{
		Patterns:    map[string]model.PatternEntry{},
		ImportGraph: map[string][]string{},
		GoldenFiles: nil,
	})
}

func build(raw *model.IntelligenceSidecar) *Sidecar {
	s := &Sidecar{
		raw:            raw,
		decliningNames: make(map[string]struct{}),
		risingNames:    make(map[string]struct{}),
		warnings:       make(map[string]string),
		centrality:     make(map[string]float64),
	}

	for _, entry := range raw.Patterns {
		for _, instance := range append([]model.PatternInstance{entry.Primary}, entry.AlsoDetected...) {
			name := strings.ToLower(instance.Name)
			switch instance.Trend {
			case model.TrendDeclining:
				s.decliningNames[name] = struct{}{}
				if instance.Guidance != "" {
					s.warnings[name] = instance.Guidance
				}
			case model.TrendRising:
				s.risingNames[name] = struct{}{}
			}
		}
	}

	inDegree := make(map[string]int)
	maxInDegree := 0
	for _, targets := range raw.ImportGraph {
		for _, target := range targets {
			inDegree[target]++
			if inDegree[target] > maxInDegree {
				maxInDegree = inDegree[target]
			}
		}
	}
	if maxInDegree > 0 {
		for path, degree := range inDegree {
			s.centrality[path] = float64(degree) / float64(maxInDegree)
		}
	}

	return s
}

// TrendFor returns the trend for a lowercase pattern/component name, or
// TrendStable if it's in neither the rising nor declining set.
func (s *Sidecar) TrendFor(name string) model.Trend {
	lower := strings.ToLower(name)
	if _, ok := s.decliningNames[lower]; ok {
		return model.TrendDeclining
	}
	if _, ok := s.risingNames[lower]; ok {
		return model.TrendRising
	}
	return model.TrendStable
}

// PatternWarning returns the guidance string for a declining pattern name,
// or "" if the name isn't declining or has no guidance attached.
func (s *Sidecar) PatternWarning(name string) string {
	return s.warnings[strings.ToLower(name)]
}

// Centrality returns in_degree/max_in_degree for a relative path, or 0 if
// the path has no inbound internal imports.
func (s *Sidecar) Centrality(relPath string) float64 {
	return s.centrality[relPath]
}

// ImportGraph exposes the raw internal import graph, e.g. for the cycle
// detector.
func (s *Sidecar) ImportGraph() map[string][]string {
	return s.raw.ImportGraph
}

// GoldenFiles returns the ordered exemplar list.
func (s *Sidecar) GoldenFiles() []model.GoldenFile {
	return s.raw.GoldenFiles
}

// Raw exposes the underlying persisted sidecar, for callers (the indexer's
// incremental build) that need the previous build's pattern frequencies to
// classify trend on the next build.
func (s *Sidecar) Raw() *model.IntelligenceSidecar {
	return s.raw
}
