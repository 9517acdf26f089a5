package mcpserver

// SearchInput defines the input schema for the search tool, trimmed to the
// filters the hybrid retriever actually supports.
type SearchInput struct {
	Query                     string   `json:"query" jsonschema:"the code search query to execute"`
	Limit                     int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	Language                  string   `json:"language,omitempty" jsonschema:"filter by programming language, e.g. go, typescript"`
	Framework                 string   `json:"framework,omitempty" jsonschema:"filter by framework tag"`
	ComponentType             string   `json:"component_type,omitempty" jsonschema:"filter by component type"`
	Layer                     string   `json:"layer,omitempty" jsonschema:"filter by architectural layer"`
	Tags                      []string `json:"tags,omitempty" jsonschema:"filter by tags (AND logic)"`
	Profile                   string   `json:"profile,omitempty" jsonschema:"scoring profile: explore, edit, refactor, or migrate"`
	UseSemanticSearch         *bool    `json:"use_semantic_search,omitempty" jsonschema:"enable semantic retrieval, default true"`
	UseLexicalSearch          *bool    `json:"use_lexical_search,omitempty" jsonschema:"enable lexical retrieval, default true"`
	EnableQueryExpansion      *bool    `json:"enable_query_expansion,omitempty" jsonschema:"enable query variant expansion, default true"`
	EnableLowConfidenceRescue *bool    `json:"enable_low_confidence_rescue,omitempty" jsonschema:"retry with expanded variants on low-confidence results, default true"`
	EnableReranker            bool     `json:"enable_reranker,omitempty" jsonschema:"rerank top candidates with a cross-encoder, default false"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results" jsonschema:"list of search results"`
	Status  string               `json:"status" jsonschema:"ok or low_confidence"`
	Rescued bool                 `json:"rescued,omitempty" jsonschema:"true if the low-confidence rescue pass replaced the primary results"`
}

// SearchResultOutput is a single enriched, scored hit.
type SearchResultOutput struct {
	Path          string   `json:"path" jsonschema:"file path relative to project root"`
	StartLine     int      `json:"start_line" jsonschema:"first line of the chunk"`
	EndLine       int      `json:"end_line" jsonschema:"last line of the chunk"`
	Language      string   `json:"language,omitempty" jsonschema:"programming language of the file"`
	Snippet       string   `json:"snippet" jsonschema:"matched content snippet"`
	Score         float64  `json:"score" jsonschema:"relevance score"`
	Symbol        string   `json:"symbol,omitempty" jsonschema:"primary symbol name"`
	ComponentType string   `json:"component_type,omitempty" jsonschema:"symbol component type"`
	Trend         string   `json:"trend,omitempty" jsonschema:"pattern trend: Rising, Stable, or Declining"`
	Centrality    float64  `json:"centrality,omitempty" jsonschema:"import-graph centrality score"`
	Tags          []string `json:"tags,omitempty" jsonschema:"tags attached to this chunk"`
}

// FindReferencesInput defines the input schema for the find_references tool.
type FindReferencesInput struct {
	Symbol string `json:"symbol" jsonschema:"the exact symbol name to find usages of"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of usages to return, default 20"`
}

// FindReferencesOutput defines the output schema for the find_references tool.
type FindReferencesOutput struct {
	Symbol     string        `json:"symbol"`
	Usages     []UsageOutput `json:"usages"`
	UsageCount int           `json:"usage_count" jsonschema:"total usages found, which may exceed len(usages) if truncated"`
	Confidence string        `json:"confidence" jsonschema:"always syntactic (whole-word text match)"`
	IsComplete bool          `json:"is_complete" jsonschema:"false if usage_count exceeds the returned usages"`
}

// UsageOutput is one located occurrence of a symbol.
type UsageOutput struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Preview string `json:"preview"`
}

// DetectCyclesInput defines the input schema for the detect_cycles tool.
type DetectCyclesInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"restrict cycle detection to this path prefix"`
}

// DetectCyclesOutput defines the output schema for the detect_cycles tool.
type DetectCyclesOutput struct {
	Cycles []CycleOutput `json:"cycles"`
}

// CycleOutput is one elementary import cycle.
type CycleOutput struct {
	Nodes    []string `json:"nodes"`
	Severity string   `json:"severity"`
}

// IndexStatusInput defines the input schema for the index_status tool (no
// parameters).
type IndexStatusInput struct{}

// IndexStatusOutput defines the output schema for the index_status tool.
type IndexStatusOutput struct {
	BuildID            string `json:"build_id"`
	ToolVersion        string `json:"tool_version"`
	TotalChunks        int    `json:"total_chunks"`
	FormatVersion      int    `json:"format_version"`
	EmbeddingDims      int    `json:"embedding_dims"`
	KeywordStoreBytes  int64  `json:"keyword_store_bytes"`
	VectorStoreBytes   int64  `json:"vector_store_bytes"`
	EmbedderCompatible bool   `json:"embedder_compatible"`
}

// RefreshIndexInput defines the input schema for the refresh_index tool.
type RefreshIndexInput struct {
	IncrementalOnly bool `json:"incremental_only,omitempty" jsonschema:"rebuild only files changed since the last build, default false"`
}

// RefreshIndexOutput defines the output schema for the refresh_index tool.
type RefreshIndexOutput struct {
	FilesScanned  int `json:"files_scanned"`
	ChunksWritten int `json:"chunks_written"`
	DurationMs    int `json:"duration_ms"`
}
