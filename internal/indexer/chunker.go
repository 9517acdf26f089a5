package indexer

import (
	"context"

	"github.com/codectx/ctxd/internal/model"
)

// Chunker is the pluggable syntactic-analyzer boundary: language-specific
// analyzers that produce chunks. The indexer depends only on this
// interface; production deployments wire in a tree-sitter-backed
// implementation (internal/chunker provides one).
type Chunker interface {
	Chunk(ctx context.Context, absPath, relPath, language string, content []byte) ([]*model.Chunk, error)
}
