// Package indexer implements the rebuild coordinator: the atomic
// staging-and-swap full and incremental build protocols, built on top of
// indexstore's manifest/chunk/vector writers and intel's sidecar writer.
// All mutation goes through a build-id-stamped staging directory; the
// active index is never modified in place.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/codectx/ctxd/internal/config"
	"github.com/codectx/ctxd/internal/embedadapter"
	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/indexstore"
	"github.com/codectx/ctxd/internal/intel"
	"github.com/codectx/ctxd/internal/model"
)

const (
	chunkStoreFile     = "index.json"
	vectorStoreDirName = "index"
	intelligenceFile   = "intelligence.json"
	relationshipsFile  = "relationships.json"
	vectorProviderName = "hnsw-cosine"

	// vectorBuildsDirName holds one subdirectory per published vector-store
	// build; the active vectorStoreDirName path is a symlink into it, so a
	// build is published by retargeting the link rather than replacing the
	// directory in place.
	vectorBuildsDirName = ".index-builds"
)

// Coordinator drives full and incremental index builds for a project root.
// One Coordinator is safe to reuse across builds; concurrent builds of the
// same root are serialized by the write lock, not by the Coordinator value.
type Coordinator struct {
	cfg      *config.Config
	embedder embedadapter.Embedder
	chunker  Chunker
	logger   *slog.Logger

	toolVersion string
}

// New creates a build coordinator. toolVersion is stamped into every
// manifest.
func New(cfg *config.Config, embedder embedadapter.Embedder, chunker Chunker, logger *slog.Logger, toolVersion string) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, embedder: embedder, chunker: chunker, logger: logger, toolVersion: toolVersion}
}

// RebuildFull performs a full rebuild, satisfying autoheal.Rebuilder.
func (c *Coordinator) RebuildFull(ctx context.Context, root string) error {
	_, err := c.Index(ctx, root, false)
	return err
}

// Index runs a build for root. If incrementalOnly is true and a previous
// build and file manifest exist, an incremental build runs; otherwise (no
// prior build, or incrementalOnly is false) a full build runs.
func (c *Coordinator) Index(ctx context.Context, root string, incrementalOnly bool) (model.Stats, error) {
	contextDir := config.ContextDir(root)
	lock := newWriteLock(contextDir)
	if err := lock.Lock(); err != nil {
		return model.Stats{}, errs.Internal("acquire write lock", err)
	}
	defer lock.Unlock()

	cleanupOrphans(contextDir)

	start := time.Now()

	if incrementalOnly {
		if _, err := indexstore.ReadManifest(contextDir); err == nil {
			if prevFiles, ferr := loadFileManifest(contextDir); ferr == nil && prevFiles != nil {
				stats, err := c.incrementalBuild(ctx, root, contextDir, prevFiles, start)
				if err != nil {
					c.logger.Warn("incremental build failed, falling back to full build",
						slog.String("root", root), slog.String("error", err.Error()))
				} else {
					return stats, nil
				}
			}
		}
	}

	return c.fullBuild(ctx, root, contextDir, start)
}

// fullBuild runs the staging-and-swap full-build protocol: fresh build id,
// stage every artifact, rename each into place with the manifest last.
func (c *Coordinator) fullBuild(ctx context.Context, root, contextDir string, start time.Time) (model.Stats, error) {
	buildID := uuid.NewString()                                  // 1. allocate fresh build_id
	stagingDir := filepath.Join(contextDir, ".staging", buildID) // 2. create staging dir
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return model.Stats{}, errs.Internal("create staging directory", err)
	}
	defer os.RemoveAll(stagingDir)

	scanned, err := Walk(root, c.cfg.Paths.Exclude, 0)
	if err != nil {
		return model.Stats{}, errs.Internal("walk project root", err)
	}

	chunks, err := c.chunkAll(ctx, scanned)
	if err != nil {
		return model.Stats{}, err
	}
	if err := c.embedAll(ctx, chunks); err != nil {
		return model.Stats{}, err
	}

	// 3. produce artifacts into staging, stamped with the new build_id.
	header := model.ChunkStoreHeader{BuildID: buildID, FormatVersion: model.CompiledFormatVersion}
	stagedChunkPath := filepath.Join(stagingDir, chunkStoreFile)
	if err := indexstore.SaveChunks(stagedChunkPath, header, chunks); err != nil {
		return model.Stats{}, errs.Internal("save chunk store", err)
	}

	vs := indexstore.NewVectorStore(c.cfg.Embeddings.Dimensions)
	if err := vs.Upsert(ctx, chunks); err != nil {
		return model.Stats{}, errs.Internal("populate vector store", err)
	}
	stagedVectorDir := filepath.Join(stagingDir, vectorStoreDirName)
	marker := model.VectorBuildMarker{BuildID: buildID, FormatVersion: model.CompiledFormatVersion, Provider: vectorProviderName}
	if err := vs.Save(stagedVectorDir, marker); err != nil {
		return model.Stats{}, errs.Internal("save vector store", err)
	}

	sidecar := buildSidecar(chunks, nil)
	stagedIntelPath := filepath.Join(stagingDir, intelligenceFile)
	if err := intel.Save(stagedIntelPath, sidecar); err != nil {
		return model.Stats{}, errs.Internal("save intelligence sidecar", err)
	}
	stagedRelPath := filepath.Join(stagingDir, relationshipsFile)
	if err := intel.SaveRelationships(stagedRelPath, sidecar.ImportGraph); err != nil {
		return model.Stats{}, errs.Internal("save relationships sidecar", err)
	}

	// 4. write the new manifest into staging.
	artifacts := model.ArtifactDescriptor{
		KeywordStorePath: chunkStoreFile,
		VectorStorePath:  vectorStoreDirName,
		VectorProvider:   vectorProviderName,
		IntelligencePath: intelligenceFile,
	}
	manifest := indexstore.NewManifest(buildID, c.toolVersion, c.cfg.Embeddings.Dimensions, artifacts, start)
	stagedManifestPath := filepath.Join(stagingDir, indexstore.ManifestFileName)
	if err := writeManifestAt(stagedManifestPath, manifest); err != nil {
		return model.Stats{}, errs.Internal("stage manifest", err)
	}

	// 5. swap each artifact onto the active location, manifest last.
	if err := swapArtifact(stagedChunkPath, filepath.Join(contextDir, chunkStoreFile)); err != nil {
		return model.Stats{}, errs.Internal("publish chunk store", err)
	}
	if err := swapVectorDir(contextDir, stagedVectorDir, buildID); err != nil {
		return model.Stats{}, errs.Internal("publish vector store", err)
	}
	if err := swapArtifact(stagedIntelPath, filepath.Join(contextDir, intelligenceFile)); err != nil {
		return model.Stats{}, errs.Internal("publish intelligence sidecar", err)
	}
	if err := swapArtifact(stagedRelPath, filepath.Join(contextDir, relationshipsFile)); err != nil {
		return model.Stats{}, errs.Internal("publish relationships sidecar", err)
	}
	if err := indexstore.WriteManifest(contextDir, manifest); err != nil {
		return model.Stats{}, errs.Internal("publish manifest", err)
	}
	sweepVectorBuilds(contextDir, buildID)

	// 6. staging directory removed via defer above.

	fileManifest := toFileManifest(scanned)
	_ = saveFileManifest(contextDir, fileManifest)

	stats := model.Stats{
		IndexedFiles: len(scanned),
		TotalChunks:  len(chunks),
		TotalFiles:   len(scanned),
		Duration:     time.Since(start),
	}
	_ = saveLastStats(contextDir, stats)
	return stats, nil
}

// incrementalBuild diffs the tree against the previous file manifest and
// rebuilds only what changed, restamping every artifact under a new build id.
func (c *Coordinator) incrementalBuild(ctx context.Context, root, contextDir string, prevFiles map[string]model.FileManifestEntry, start time.Time) (model.Stats, error) {
	manifest, err := indexstore.ReadManifest(contextDir)
	if err != nil {
		return model.Stats{}, err
	}
	if err := indexstore.Validate(contextDir, manifest); err != nil {
		return model.Stats{}, err
	}

	scanned, err := Walk(root, c.cfg.Paths.Exclude, 0)
	if err != nil {
		return model.Stats{}, errs.Internal("walk project root", err)
	}
	added, changed, deleted, unchanged := classify(scanned, prevFiles)

	if len(added) == 0 && len(changed) == 0 && len(deleted) == 0 {
		if stats, ok := loadLastStats(contextDir); ok {
			stats.Incremental = &model.IncrementalStats{Unchanged: len(unchanged)}
			return stats, nil
		}
	}

	existingHeader := model.ChunkStoreHeader{BuildID: manifest.BuildID, FormatVersion: manifest.FormatVersion}
	existingChunks, err := indexstore.LoadChunks(filepath.Join(contextDir, chunkStoreFile), existingHeader)
	if err != nil {
		return model.Stats{}, err
	}

	touchedPaths := make(map[string]struct{}, len(changed)+len(deleted))
	for _, f := range changed {
		touchedPaths[f.RelPath] = struct{}{}
	}
	for _, p := range deleted {
		touchedPaths[p] = struct{}{}
	}

	var survivors []*model.Chunk
	for _, ch := range existingChunks {
		if _, touched := touchedPaths[ch.RelPath]; touched {
			continue
		}
		survivors = append(survivors, ch)
	}
	removedPaths := make([]string, 0, len(touchedPaths))
	for p := range touchedPaths {
		removedPaths = append(removedPaths, p)
	}

	toChunk := append(append([]scannedFile{}, added...), changed...)
	newChunks, err := c.chunkAll(ctx, toChunk)
	if err != nil {
		return model.Stats{}, err
	}
	if err := c.embedAll(ctx, newChunks); err != nil {
		return model.Stats{}, err
	}

	allChunks := append(survivors, newChunks...)

	buildID := uuid.NewString()
	stagingDir := filepath.Join(contextDir, ".staging", buildID)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return model.Stats{}, errs.Internal("create staging directory", err)
	}
	defer os.RemoveAll(stagingDir)

	header := model.ChunkStoreHeader{BuildID: buildID, FormatVersion: model.CompiledFormatVersion}
	stagedChunkPath := filepath.Join(stagingDir, chunkStoreFile)
	if err := indexstore.SaveChunks(stagedChunkPath, header, allChunks); err != nil {
		return model.Stats{}, errs.Internal("save chunk store", err)
	}

	vs, _, err := indexstore.Load(filepath.Join(contextDir, vectorStoreDirName))
	if err != nil {
		vs = indexstore.NewVectorStore(c.cfg.Embeddings.Dimensions)
	}
	if err := vs.DeleteByPaths(ctx, removedPaths); err != nil {
		return model.Stats{}, errs.Internal("prune vector store", err)
	}
	if err := vs.Upsert(ctx, newChunks); err != nil {
		return model.Stats{}, errs.Internal("update vector store", err)
	}
	stagedVectorDir := filepath.Join(stagingDir, vectorStoreDirName)
	marker := model.VectorBuildMarker{BuildID: buildID, FormatVersion: model.CompiledFormatVersion, Provider: vectorProviderName}
	if err := vs.Save(stagedVectorDir, marker); err != nil {
		return model.Stats{}, errs.Internal("save vector store", err)
	}

	var previousSidecar *model.IntelligenceSidecar
	if loaded, ok := intel.Load(filepath.Join(contextDir, intelligenceFile)); ok {
		previousSidecar = loaded.Raw()
	}
	sidecar := buildSidecar(allChunks, previousSidecar)
	stagedIntelPath := filepath.Join(stagingDir, intelligenceFile)
	if err := intel.Save(stagedIntelPath, sidecar); err != nil {
		return model.Stats{}, errs.Internal("save intelligence sidecar", err)
	}
	stagedRelPath := filepath.Join(stagingDir, relationshipsFile)
	if err := intel.SaveRelationships(stagedRelPath, sidecar.ImportGraph); err != nil {
		return model.Stats{}, errs.Internal("save relationships sidecar", err)
	}

	artifacts := model.ArtifactDescriptor{
		KeywordStorePath: chunkStoreFile,
		VectorStorePath:  vectorStoreDirName,
		VectorProvider:   vectorProviderName,
		IntelligencePath: intelligenceFile,
	}
	newManifest := indexstore.NewManifest(buildID, c.toolVersion, c.cfg.Embeddings.Dimensions, artifacts, start)
	stagedManifestPath := filepath.Join(stagingDir, indexstore.ManifestFileName)
	if err := writeManifestAt(stagedManifestPath, newManifest); err != nil {
		return model.Stats{}, errs.Internal("stage manifest", err)
	}

	if err := swapArtifact(stagedChunkPath, filepath.Join(contextDir, chunkStoreFile)); err != nil {
		return model.Stats{}, errs.Internal("publish chunk store", err)
	}
	if err := swapVectorDir(contextDir, stagedVectorDir, buildID); err != nil {
		return model.Stats{}, errs.Internal("publish vector store", err)
	}
	if err := swapArtifact(stagedIntelPath, filepath.Join(contextDir, intelligenceFile)); err != nil {
		return model.Stats{}, errs.Internal("publish intelligence sidecar", err)
	}
	if err := swapArtifact(stagedRelPath, filepath.Join(contextDir, relationshipsFile)); err != nil {
		return model.Stats{}, errs.Internal("publish relationships sidecar", err)
	}
	if err := indexstore.WriteManifest(contextDir, newManifest); err != nil {
		return model.Stats{}, errs.Internal("publish manifest", err)
	}
	sweepVectorBuilds(contextDir, buildID)

	newFileManifest := toFileManifest(scanned)
	_ = saveFileManifest(contextDir, newFileManifest)

	stats := model.Stats{
		IndexedFiles: len(scanned),
		TotalChunks:  len(allChunks),
		TotalFiles:   len(scanned),
		Duration:     time.Since(start),
		Incremental: &model.IncrementalStats{
			Added:     len(added),
			Changed:   len(changed),
			Deleted:   len(deleted),
			Unchanged: len(unchanged),
		},
	}
	_ = saveLastStats(contextDir, stats)
	return stats, nil
}

func (c *Coordinator) chunkAll(ctx context.Context, files []scannedFile) ([]*model.Chunk, error) {
	var all []*model.Chunk
	for _, f := range files {
		content, err := os.ReadFile(f.AbsPath)
		if err != nil {
			continue
		}
		language := detectLanguage(f.RelPath)
		chunks, err := c.chunker.Chunk(ctx, f.AbsPath, f.RelPath, language, content)
		if err != nil {
			return nil, errs.Indexing(fmt.Sprintf("chunk %s: %s", f.RelPath, err))
		}
		all = append(all, chunks...)
	}
	return all, nil
}

func (c *Coordinator) embedAll(ctx context.Context, chunks []*model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errs.Transient("embedding batch failed", err)
	}
	for i, v := range vectors {
		chunks[i].Embedding = v
	}
	return nil
}

func classify(scanned []scannedFile, prev map[string]model.FileManifestEntry) (added, changed []scannedFile, deleted []string, unchanged []scannedFile) {
	seen := make(map[string]struct{}, len(scanned))
	for _, f := range scanned {
		seen[f.RelPath] = struct{}{}
		prior, ok := prev[f.RelPath]
		switch {
		case !ok:
			added = append(added, f)
		case prior.ContentHash != f.ContentHash:
			changed = append(changed, f)
		default:
			unchanged = append(unchanged, f)
		}
	}
	for relPath := range prev {
		if _, ok := seen[relPath]; !ok {
			deleted = append(deleted, relPath)
		}
	}
	return
}

func toFileManifest(scanned []scannedFile) map[string]model.FileManifestEntry {
	out := make(map[string]model.FileManifestEntry, len(scanned))
	for _, f := range scanned {
		out[f.RelPath] = model.FileManifestEntry{
			Path:        f.RelPath,
			ContentHash: f.ContentHash,
			Size:        f.Size,
			ModTime:     time.Unix(0, f.ModTime),
		}
	}
	return out
}

// swapArtifact replaces the file at active with staged in a single rename.
// Both sides live under the same context directory, so the rename is
// same-filesystem and atomically replaces the existing destination: a
// concurrent reader observes either the old artifact or the new one, never
// a missing or partial file.
func swapArtifact(staged, active string) error {
	return os.Rename(staged, active)
}

// swapVectorDir publishes the staged vector-store directory. Directories
// cannot be atomically renamed over, so each build's store lives under
// vectorBuildsDirName/<buildID> and the active vectorStoreDirName path is a
// symlink retargeted with a symlink-then-rename, which is just as atomic as
// the file swaps above: the active path always resolves to one complete
// store. Superseded build directories are left in place here — the
// still-active manifest references the old build until the final manifest
// rename lands — and swept by sweepVectorBuilds afterwards.
func swapVectorDir(contextDir, staged, buildID string) error {
	buildsDir := filepath.Join(contextDir, vectorBuildsDirName)
	if err := os.MkdirAll(buildsDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(buildsDir, buildID)
	if err := os.Rename(staged, dest); err != nil {
		return err
	}

	tmpLink := filepath.Join(buildsDir, buildID+".link")
	_ = os.Remove(tmpLink)
	if err := os.Symlink(filepath.Join(vectorBuildsDirName, buildID), tmpLink); err != nil {
		return err
	}

	active := filepath.Join(contextDir, vectorStoreDirName)
	if fi, err := os.Lstat(active); err == nil && fi.Mode()&os.ModeSymlink == 0 {
		// Legacy layout: the active path is a real directory, which a
		// symlink cannot be renamed over. Move it aside first.
		aside := active + ".old"
		_ = os.RemoveAll(aside)
		if err := os.Rename(active, aside); err != nil {
			return err
		}
		defer os.RemoveAll(aside)
	}
	return os.Rename(tmpLink, active)
}

// sweepVectorBuilds removes every published vector-store build directory
// except the one buildID names. Callers invoke it only once nothing on
// disk references the older builds: after the manifest rename, or during
// orphan cleanup with the active symlink's target.
func sweepVectorBuilds(contextDir, buildID string) {
	buildsDir := filepath.Join(contextDir, vectorBuildsDirName)
	entries, err := os.ReadDir(buildsDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.Name() != buildID {
			_ = os.RemoveAll(filepath.Join(buildsDir, e.Name()))
		}
	}
}

// cleanupOrphans removes leftovers from interrupted earlier runs: staging
// directories that never finished publishing, and vector-store build
// directories no longer referenced by the active symlink. Runs under the
// write lock, before any new staging begins.
func cleanupOrphans(contextDir string) {
	_ = os.RemoveAll(filepath.Join(contextDir, ".staging"))

	activeTarget := ""
	if target, err := os.Readlink(filepath.Join(contextDir, vectorStoreDirName)); err == nil {
		activeTarget = filepath.Base(target)
	}
	sweepVectorBuilds(contextDir, activeTarget)
}

// writeManifestAt writes m as the manifest for the build root containing
// path (path is that root's conventional index-meta.json location).
func writeManifestAt(path string, m *model.BuildManifest) error {
	return indexstore.WriteManifest(filepath.Dir(path), m)
}

func detectLanguage(relPath string) string {
	ext := filepath.Ext(relPath)
	switch ext {
	case ".go":
		return "go"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	case ".java":
		return "java"
	case ".rb":
		return "ruby"
	case ".md", ".markdown":
		return "markdown"
	default:
		return "text"
	}
}
