package indexer

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/codectx/ctxd/internal/model"
)

// IndexInfo enriches the bare build identity with on-disk sizes and
// embedder compatibility, for status reporting.
type IndexInfo struct {
	BuildID           string    `json:"build_id"`
	GeneratedAt       time.Time `json:"generated_at"`
	ToolVersion       string    `json:"tool_version"`
	FormatVersion     int       `json:"format_version"`
	EmbeddingDims     int       `json:"embedding_dims"`
	TotalChunks       int       `json:"total_chunks"`
	KeywordStoreBytes int64     `json:"keyword_store_bytes"`
	VectorStoreBytes  int64     `json:"vector_store_bytes"`
	IntelligenceBytes int64     `json:"intelligence_bytes"`

	// EmbedderCompatible is false when the configured embedder's dimension
	// no longer matches what the index was built with; queries would fall
	// back to lexical-only until a rebuild.
	EmbedderCompatible bool `json:"embedder_compatible"`
}

// CollectIndexInfo gathers sizes for the artifacts a manifest describes.
// Missing artifacts contribute zero bytes rather than an error: size
// collection is diagnostic, and integrity is the validator's job.
func CollectIndexInfo(contextDir string, manifest *model.BuildManifest, totalChunks, embedderDims int) IndexInfo {
	info := IndexInfo{
		BuildID:            manifest.BuildID,
		GeneratedAt:        manifest.GeneratedAt,
		ToolVersion:        manifest.ToolVersion,
		FormatVersion:      manifest.FormatVersion,
		EmbeddingDims:      manifest.EmbeddingDims,
		TotalChunks:        totalChunks,
		EmbedderCompatible: embedderDims == manifest.EmbeddingDims,
	}
	info.KeywordStoreBytes = artifactSize(filepath.Join(contextDir, manifest.Artifacts.KeywordStorePath))
	info.VectorStoreBytes = artifactSize(filepath.Join(contextDir, manifest.Artifacts.VectorStorePath))
	info.IntelligenceBytes = artifactSize(filepath.Join(contextDir, manifest.Artifacts.IntelligencePath))
	return info
}

// artifactSize returns the byte size of a file, or the recursive total for
// a directory artifact (the vector store, whose active path is a symlink
// into the per-build directory and so is resolved first).
func artifactSize(path string) int64 {
	stat, err := os.Stat(path)
	if err != nil {
		return 0
	}
	if !stat.IsDir() {
		return stat.Size()
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	var total int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}
