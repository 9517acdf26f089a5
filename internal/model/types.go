// Package model defines the on-disk and in-memory data types shared by the
// index substrate and the retrieval engine.
package model

import "time"

// ContentType classifies the kind of source a Chunk was extracted from.
type ContentType string

const (
	ContentTypeCode     ContentType = "code"
	ContentTypeMarkdown ContentType = "markdown"
	ContentTypeText     ContentType = "text"
)

// Trend classifies the direction a pattern is moving in the codebase.
type Trend string

const (
	TrendRising    Trend = "Rising"
	TrendStable    Trend = "Stable"
	TrendDeclining Trend = "Declining"
)

// Chunk is the smallest indexed unit: a contiguous region of a source file
// plus the metadata an analyzer attached to it.
type Chunk struct {
	ID             string            `json:"id"`
	AbsPath        string            `json:"abs_path"`
	RelPath        string            `json:"rel_path"`
	StartLine      int               `json:"start_line"`
	EndLine        int               `json:"end_line"`
	Language       string            `json:"language"`
	Framework      string            `json:"framework,omitempty"`
	ComponentType  string            `json:"component_type,omitempty"`
	Layer          string            `json:"layer,omitempty"`
	Dependencies   []string          `json:"dependencies,omitempty"`
	Imports        []string          `json:"imports,omitempty"`
	Exports        []string          `json:"exports,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	Content        string            `json:"content"`
	SymbolPath     []string          `json:"symbol_path,omitempty"`
	ComponentName  string            `json:"component_name,omitempty"`
	Complexity     *float64          `json:"complexity,omitempty"`
	Embedding      []float32         `json:"embedding,omitempty"`
	ContentType    ContentType       `json:"content_type,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// SymbolName returns the last element of SymbolPath, or empty if unset.
func (c *Chunk) SymbolName() string {
	if len(c.SymbolPath) == 0 {
		return ""
	}
	return c.SymbolPath[len(c.SymbolPath)-1]
}

// ArtifactDescriptor records the on-disk location of one build artifact.
type ArtifactDescriptor struct {
	KeywordStorePath string `json:"keyword_store_path"`
	VectorStorePath  string `json:"vector_store_path"`
	VectorProvider   string `json:"vector_provider"`
	IntelligencePath string `json:"intelligence_path"`
}

// BuildManifest is the authoritative per-build metadata record.
type BuildManifest struct {
	MetaVersion    int                 `json:"meta_version"`
	FormatVersion  int                 `json:"format_version"`
	BuildID        string              `json:"build_id"`
	GeneratedAt    time.Time           `json:"generated_at"`
	ToolVersion    string              `json:"tool_version"`
	Artifacts      ArtifactDescriptor  `json:"artifacts"`
	EmbeddingDims  int                 `json:"embedding_dims"`
}

// ChunkStoreHeader prefixes the chunk store's on-disk chunk sequence.
type ChunkStoreHeader struct {
	BuildID       string `json:"build_id"`
	FormatVersion int    `json:"format_version"`
}

// VectorBuildMarker is the sibling file next to the vector store data.
type VectorBuildMarker struct {
	BuildID       string `json:"build_id"`
	FormatVersion int    `json:"format_version"`
	Provider      string `json:"provider"`
}

// FileManifestEntry is one row of the incremental file-hash ledger.
type FileManifestEntry struct {
	Path        string    `json:"path"`
	ContentHash string    `json:"content_hash"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mtime"`
}

// FileChangeClass classifies a file for incremental indexing.
type FileChangeClass string

const (
	FileAdded     FileChangeClass = "added"
	FileChanged   FileChangeClass = "changed"
	FileDeleted   FileChangeClass = "deleted"
	FileUnchanged FileChangeClass = "unchanged"
)

// PatternEntry describes one detected coding pattern, with its canonical
// example and the closest alternatives the intelligence sidecar also saw.
type PatternEntry struct {
	Primary      PatternInstance   `json:"primary"`
	AlsoDetected []PatternInstance `json:"alsoDetected,omitempty"`
}

// PatternInstance is a single named pattern occurrence.
type PatternInstance struct {
	Name             string  `json:"name"`
	Frequency        int     `json:"frequency"`
	Trend            Trend   `json:"trend"`
	CanonicalExample string  `json:"canonicalExample,omitempty"`
	Guidance         string  `json:"guidance,omitempty"`
}

// GoldenFile is an exemplar file with a quality score.
type GoldenFile struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// IntelligenceSidecar is the persisted pattern-trend and import-graph data.
type IntelligenceSidecar struct {
	Patterns    map[string]PatternEntry `json:"patterns"`
	ImportGraph map[string][]string     `json:"importGraph"`
	GoldenFiles []GoldenFile            `json:"goldenFiles"`
}

// QueryVariant is a derived, weighted rewrite of a user query. Never persisted.
type QueryVariant struct {
	Query  string
	Weight float64
}

// SearchResult is a single returned region, enriched with retrieval signals.
type SearchResult struct {
	Path               string   `json:"path"`
	StartLine          int      `json:"start_line"`
	EndLine            int      `json:"end_line"`
	Score              float64  `json:"score"`
	Summary            string   `json:"summary"`
	Snippet            string   `json:"snippet,omitempty"`
	Language           string   `json:"language"`
	Framework          string   `json:"framework,omitempty"`
	ComponentType      string   `json:"component_type,omitempty"`
	Layer              string   `json:"layer,omitempty"`
	Trend              Trend    `json:"trend,omitempty"`
	PatternWarning     string   `json:"pattern_warning,omitempty"`
	Callers            []string `json:"callers,omitempty"`
	Consumers          []string `json:"consumers,omitempty"`
	Tests              []string `json:"tests,omitempty"`
	RelationshipsCount int      `json:"relationships_count,omitempty"`
	SymbolPath         []string `json:"-"`
	ChunkID            string   `json:"-"`
}

// Stats summarizes the outcome of an indexing run.
type Stats struct {
	IndexedFiles int           `json:"indexed_files"`
	TotalChunks  int           `json:"total_chunks"`
	TotalFiles   int           `json:"total_files"`
	Duration     time.Duration `json:"duration"`
	Incremental  *IncrementalStats `json:"incremental,omitempty"`
}

// IncrementalStats breaks an incremental run down by file-change class.
type IncrementalStats struct {
	Added     int `json:"added"`
	Changed   int `json:"changed"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// CompiledMetaVersion and CompiledFormatVersion are the versions this build
// of ctxd understands. Readers refuse any artifact that disagrees.
const (
	CompiledMetaVersion   = 1
	CompiledFormatVersion = 3
)
