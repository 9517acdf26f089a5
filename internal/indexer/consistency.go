package indexer

import (
	"time"

	"github.com/codectx/ctxd/internal/model"
)

// InconsistencyKind categorizes a cross-store issue found by a check.
type InconsistencyKind string

const (
	// InconsistencyOrphanVector is a vector entry with no matching chunk.
	InconsistencyOrphanVector InconsistencyKind = "orphan_vector"
	// InconsistencyMissingVector is an embedded chunk with no vector entry.
	InconsistencyMissingVector InconsistencyKind = "missing_vector"
	// InconsistencyDanglingImport is a sidecar import edge naming a file
	// absent from the chunk store.
	InconsistencyDanglingImport InconsistencyKind = "dangling_import"
	// InconsistencyDanglingGolden is a golden-file exemplar naming a file
	// absent from the chunk store.
	InconsistencyDanglingGolden InconsistencyKind = "dangling_golden"
)

// Inconsistency is one detected cross-store issue.
type Inconsistency struct {
	Kind    InconsistencyKind `json:"kind"`
	Subject string            `json:"subject"`
	Details string            `json:"details"`
}

// CheckResult is the outcome of a consistency check.
type CheckResult struct {
	CheckedChunks  int             `json:"checked_chunks"`
	CheckedVectors int             `json:"checked_vectors"`
	Issues         []Inconsistency `json:"issues"`
	Duration       time.Duration   `json:"duration"`
}

// Clean reports whether the check found no issues.
func (r *CheckResult) Clean() bool {
	return len(r.Issues) == 0
}

// CheckConsistency cross-checks the loaded chunk set against the vector
// store's live IDs and the intelligence sidecar's path references. The
// chunk store is the reference: vectors without a chunk are orphans,
// embedded chunks without a vector are missing, and sidecar paths that no
// chunk covers are dangling. This is a read-only diagnostic; issues it
// reports are repaired by a full rebuild, not in place.
func CheckConsistency(chunks []*model.Chunk, vectorIDs []string, sidecar *model.IntelligenceSidecar) *CheckResult {
	start := time.Now()
	result := &CheckResult{
		CheckedChunks:  len(chunks),
		CheckedVectors: len(vectorIDs),
	}

	chunkIDs := make(map[string]struct{}, len(chunks))
	chunkPaths := make(map[string]struct{}, len(chunks))
	for _, ch := range chunks {
		chunkIDs[ch.ID] = struct{}{}
		chunkPaths[ch.RelPath] = struct{}{}
	}

	vectorSet := make(map[string]struct{}, len(vectorIDs))
	for _, id := range vectorIDs {
		vectorSet[id] = struct{}{}
		if _, ok := chunkIDs[id]; !ok {
			result.Issues = append(result.Issues, Inconsistency{
				Kind:    InconsistencyOrphanVector,
				Subject: id,
				Details: "vector entry without a matching chunk",
			})
		}
	}

	for _, ch := range chunks {
		if len(ch.Embedding) == 0 {
			continue
		}
		if _, ok := vectorSet[ch.ID]; !ok {
			result.Issues = append(result.Issues, Inconsistency{
				Kind:    InconsistencyMissingVector,
				Subject: ch.ID,
				Details: "embedded chunk missing from the vector store: " + ch.RelPath,
			})
		}
	}

	if sidecar != nil {
		for source, targets := range sidecar.ImportGraph {
			if _, ok := chunkPaths[source]; !ok {
				result.Issues = append(result.Issues, Inconsistency{
					Kind:    InconsistencyDanglingImport,
					Subject: source,
					Details: "import-graph source not present in the chunk store",
				})
			}
			for _, target := range targets {
				if _, ok := chunkPaths[target]; !ok {
					result.Issues = append(result.Issues, Inconsistency{
						Kind:    InconsistencyDanglingImport,
						Subject: target,
						Details: "import-graph target not present in the chunk store (imported by " + source + ")",
					})
				}
			}
		}
		for _, golden := range sidecar.GoldenFiles {
			if _, ok := chunkPaths[golden.Path]; !ok {
				result.Issues = append(result.Issues, Inconsistency{
					Kind:    InconsistencyDanglingGolden,
					Subject: golden.Path,
					Details: "golden-file exemplar not present in the chunk store",
				})
			}
		}
	}

	result.Duration = time.Since(start)
	return result
}
