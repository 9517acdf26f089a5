// Package engine is the composition root: it wires indexstore, intel,
// indexer, retrieval, and graph into the operations exposed to callers
// (search, find references, detect cycles, refresh, status), each
// index-reading operation wrapped by auto-heal. Query state is lazily
// loaded and swapped out on rebuild rather than held by a long-lived
// connection-handling loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/codectx/ctxd/internal/autoheal"
	"github.com/codectx/ctxd/internal/config"
	"github.com/codectx/ctxd/internal/embedadapter"
	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/graph"
	"github.com/codectx/ctxd/internal/indexer"
	"github.com/codectx/ctxd/internal/indexstore"
	"github.com/codectx/ctxd/internal/intel"
	"github.com/codectx/ctxd/internal/model"
	"github.com/codectx/ctxd/internal/retrieval"
)

const vectorStoreDirName = "index"
const intelligenceFile = "intelligence.json"
const relationshipsFile = "relationships.json"
const chunkStoreFile = "index.json"

// Engine is the long-lived façade a CLI command or MCP tool calls into. One
// Engine serves one project root.
type Engine struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger

	coordinator *indexer.Coordinator
	autoheal    *autoheal.Wrapper
	embedder    embedadapter.Embedder
	encoder     retrieval.CrossEncoder

	mu    sync.RWMutex
	state *queryState
}

// queryState is every piece of loaded index data a query needs. It's
// rebuilt wholesale on load and after an auto-heal rebuild; it's never
// mutated in place.
type queryState struct {
	manifest *model.BuildManifest
	chunks   []*model.Chunk
	header   model.ChunkStoreHeader
	sidecar  *intel.Sidecar
	vectors  *indexstore.VectorStore
	query    *retrieval.Engine
}

// New builds an Engine for root. chunker and embedder are pluggable
// collaborators; toolVersion is stamped into every manifest written by a
// rebuild.
func New(root string, cfg *config.Config, chunker indexer.Chunker, embedder embedadapter.Embedder, encoder retrieval.CrossEncoder, logger *slog.Logger, toolVersion string) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	coordinator := indexer.New(cfg, embedder, chunker, logger, toolVersion)
	e := &Engine{
		root:        root,
		cfg:         cfg,
		logger:      logger,
		coordinator: coordinator,
		embedder:    embedder,
		encoder:     encoder,
	}
	e.autoheal = autoheal.New(coordinator, logger)
	return e
}

// contextDir is this engine's `.codebase-context` directory.
func (e *Engine) contextDir() string {
	return config.ContextDir(e.root)
}

// load reads the active manifest and every artifact it describes into a
// fresh queryState. A missing or invalid manifest/artifact surfaces as a
// Corrupted error so autoheal.Wrapper can rebuild and retry.
func (e *Engine) load(ctx context.Context) (*queryState, error) {
	contextDir := e.contextDir()

	manifest, err := indexstore.ReadManifest(contextDir)
	if err != nil {
		return nil, errs.Corrupted("no readable manifest: " + err.Error())
	}
	if err := indexstore.Validate(contextDir, manifest); err != nil {
		return nil, err
	}

	header := model.ChunkStoreHeader{BuildID: manifest.BuildID, FormatVersion: manifest.FormatVersion}
	chunks, err := indexstore.LoadChunks(filepath.Join(contextDir, chunkStoreFile), header)
	if err != nil {
		return nil, err
	}

	fuzzy, err := indexstore.BuildFuzzyIndex(chunks)
	if err != nil {
		return nil, errs.Internal("build fuzzy index", err)
	}

	vectors, marker, err := indexstore.Load(filepath.Join(contextDir, vectorStoreDirName))
	if err != nil {
		return nil, errs.Corrupted("vector store unreadable: " + err.Error())
	}
	// Re-check the marker against the snapshotted manifest: Validate read
	// the marker earlier, but a build publishing between that read and this
	// load would otherwise hand us another build's vectors.
	if marker.BuildID != manifest.BuildID || marker.FormatVersion != manifest.FormatVersion {
		return nil, errs.Corrupted("Vector DB build mismatch")
	}

	sidecar, _ := intel.Load(filepath.Join(contextDir, intelligenceFile))
	if graph, ok := intel.LoadRelationships(filepath.Join(contextDir, relationshipsFile)); ok {
		sidecar = sidecar.WithImportGraph(graph)
	}

	retriever := retrieval.NewHybridRetriever(chunks, fuzzy, vectors, e.embedder)
	queryEngine := retrieval.NewEngine(retriever, sidecar, e.encoder, e.logger, float64(e.cfg.Search.RRFConstant))

	return &queryState{
		manifest: manifest,
		chunks:   chunks,
		header:   header,
		sidecar:  sidecar,
		vectors:  vectors,
		query:    queryEngine,
	}, nil
}

// ensureState returns the cached query state, loading it on first use.
func (e *Engine) ensureState(ctx context.Context) (*queryState, error) {
	e.mu.RLock()
	if e.state != nil {
		s := e.state
		e.mu.RUnlock()
		return s, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != nil {
		return e.state, nil
	}
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.state = s
	return s, nil
}

// invalidate drops the cached query state, forcing the next ensureState
// call to reload from disk. Called after a successful auto-heal rebuild and
// after every explicit RefreshIndex.
func (e *Engine) invalidate() {
	e.mu.Lock()
	e.state = nil
	e.mu.Unlock()
}

// withIndex wraps an index-reading operation with auto-heal's
// catch/rebuild/retry-once policy. A Corrupted error from op
// triggers exactly one full rebuild, after which the cached query state is
// invalidated so the retry observes the rebuilt artifacts.
func (e *Engine) withIndex(ctx context.Context, op func(ctx context.Context, s *queryState) (any, error)) (any, error) {
	return e.autoheal.Do(ctx, e.root, func(ctx context.Context) (any, error) {
		s, err := e.ensureState(ctx)
		if err != nil {
			if errs.IsCorrupted(err) {
				e.invalidate()
			}
			return nil, err
		}
		result, opErr := op(ctx, s)
		if opErr != nil && errs.IsCorrupted(opErr) {
			e.invalidate()
		}
		return result, opErr
	})
}

// Search runs the full hybrid retrieval pipeline for query, auto-healing on
// index corruption.
func (e *Engine) Search(ctx context.Context, query string, limit int, filters retrieval.Filters, opts retrieval.Options) (retrieval.Outcome, error) {
	if query == "" {
		return retrieval.Outcome{}, errs.Invalid("query must not be empty")
	}
	result, err := e.withIndex(ctx, func(ctx context.Context, s *queryState) (any, error) {
		return s.query.Search(ctx, query, limit, filters, opts)
	})
	if err != nil {
		return retrieval.Outcome{}, err
	}
	return result.(retrieval.Outcome), nil
}

// FindReferences locates whole-word occurrences of symbol across the
// current chunk set, auto-healing on a chunk-store header mismatch.
func (e *Engine) FindReferences(ctx context.Context, symbol string, limit int) (*retrieval.ReferenceResult, error) {
	if symbol == "" {
		return nil, errs.Invalid("symbol must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}
	result, err := e.withIndex(ctx, func(ctx context.Context, s *queryState) (any, error) {
		return retrieval.FindReferences(s.chunks, s.header, s.header, symbol, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.(*retrieval.ReferenceResult), nil
}

// DetectCycles runs the import-cycle detector over the current intelligence
// sidecar's import graph, optionally restricted to a path scope.
func (e *Engine) DetectCycles(ctx context.Context, scope string) ([]graph.Cycle, error) {
	result, err := e.withIndex(ctx, func(ctx context.Context, s *queryState) (any, error) {
		return graph.DetectCycles(s.sidecar.ImportGraph(), scope), nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]graph.Cycle), nil
}

// Status is the snapshot the status operation returns.
type Status struct {
	BuildID       string
	ToolVersion   string
	TotalChunks   int
	FormatVersion int
	Info          indexer.IndexInfo
}

// GetIndexingStatus reports the active build's identity and size without
// triggering a rebuild on corruption: a corrupted index is itself part of
// the status, not an error to heal through.
func (e *Engine) GetIndexingStatus(ctx context.Context) (Status, error) {
	s, err := e.ensureState(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		BuildID:       s.manifest.BuildID,
		ToolVersion:   s.manifest.ToolVersion,
		TotalChunks:   len(s.chunks),
		FormatVersion: s.manifest.FormatVersion,
		Info:          indexer.CollectIndexInfo(e.contextDir(), s.manifest, len(s.chunks), e.embedder.Dimensions()),
	}, nil
}

// Doctor cross-checks the chunk store, vector store, and intelligence
// sidecar for orphaned and dangling entries. It runs through auto-heal: a
// corrupted index is rebuilt once before the check, so a clean report means
// the active artifacts really are consistent.
func (e *Engine) Doctor(ctx context.Context) (*indexer.CheckResult, error) {
	result, err := e.withIndex(ctx, func(ctx context.Context, s *queryState) (any, error) {
		return indexer.CheckConsistency(s.chunks, s.vectors.AllIDs(), s.sidecar.Raw()), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*indexer.CheckResult), nil
}

// RefreshIndex runs a full or incremental build and invalidates the cached
// query state so the next query observes it.
func (e *Engine) RefreshIndex(ctx context.Context, incrementalOnly bool) (model.Stats, error) {
	stats, err := e.coordinator.Index(ctx, e.root, incrementalOnly)
	e.invalidate()
	if err != nil {
		return model.Stats{}, fmt.Errorf("refresh index: %w", err)
	}
	return stats, nil
}
