// Package indexstore implements the on-disk index substrate: the
// authoritative manifest and its validator, the chunk store, and the vector
// store adapter. All writers stage artifacts in a temporary build
// directory and publish them with an atomic rename.
package indexstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/model"
)

// ManifestFileName is the well-known manifest filename beneath a build root.
const ManifestFileName = "index-meta.json"

// ErrManifestNotFound is returned by ReadManifest when no manifest exists yet
// (a fresh, never-built project root).
var ErrManifestNotFound = errors.New("manifest not found")

// ReadManifest loads the authoritative build manifest from root, or
// ErrManifestNotFound if root has never been built.
func ReadManifest(root string) (*model.BuildManifest, error) {
	path := filepath.Join(root, ManifestFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrManifestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m model.BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// WriteManifest publishes manifest as the final step of a successful build,
// via atomic temp-file-then-rename so no reader ever observes a partial
// write.
func WriteManifest(root string, m *model.BuildManifest) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create build root: %w", err)
	}
	path := filepath.Join(root, ManifestFileName)
	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// Validate runs the ordered integrity checks, short-circuiting on the
// first failure. It never returns a bare error: any
// problem is surfaced as a *errs.CtxError carrying the Corrupted code, so
// callers can treat validation failure uniformly with storage-layer
// corruption (auto-heal reacts to both the same way).
func Validate(root string, m *model.BuildManifest) error {
	if m.MetaVersion != model.CompiledMetaVersion {
		return errs.Corrupted("Meta version mismatch")
	}
	if m.FormatVersion != model.CompiledFormatVersion {
		return errs.Corrupted("Format version mismatch")
	}

	artifacts := []string{
		m.Artifacts.KeywordStorePath,
		m.Artifacts.VectorStorePath,
		m.Artifacts.IntelligencePath,
	}
	for _, rel := range artifacts {
		if rel == "" {
			return errs.Corrupted("Artifact path missing from manifest")
		}
		path := resolveArtifactPath(root, rel)
		if _, err := os.Stat(path); err != nil {
			return errs.Corrupted(fmt.Sprintf("Artifact missing: %s", rel))
		}
	}

	keywordHeader, err := readChunkStoreHeader(resolveArtifactPath(root, m.Artifacts.KeywordStorePath))
	if err != nil {
		return errs.Corrupted("Keyword index build mismatch")
	}
	if keywordHeader.BuildID != m.BuildID || keywordHeader.FormatVersion != m.FormatVersion {
		return errs.Corrupted("Keyword index build mismatch")
	}

	vectorMarker, err := readVectorBuildMarker(resolveArtifactPath(root, m.Artifacts.VectorStorePath))
	if err != nil {
		return errs.Corrupted("Vector DB build mismatch")
	}
	if vectorMarker.BuildID != m.BuildID || vectorMarker.FormatVersion != m.FormatVersion {
		return errs.Corrupted("Vector DB build mismatch")
	}

	return nil
}

func resolveArtifactPath(root, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(root, rel)
}

func readChunkStoreHeader(chunkStorePath string) (model.ChunkStoreHeader, error) {
	data, err := os.ReadFile(chunkStorePath)
	if err != nil {
		return model.ChunkStoreHeader{}, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.ChunkStoreHeader{}, err
	}
	headerRaw, ok := raw["header"]
	if !ok {
		return model.ChunkStoreHeader{}, fmt.Errorf("chunk store has no header field")
	}
	var header model.ChunkStoreHeader
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return model.ChunkStoreHeader{}, err
	}
	return header, nil
}

func readVectorBuildMarker(vectorStoreDir string) (model.VectorBuildMarker, error) {
	path := filepath.Join(vectorStoreDir, "index-build.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return model.VectorBuildMarker{}, err
	}
	var marker model.VectorBuildMarker
	if err := json.Unmarshal(data, &marker); err != nil {
		return model.VectorBuildMarker{}, err
	}
	return marker, nil
}

// NewManifest assembles a manifest for a freshly completed build. Callers
// supply a pre-generated build_id (github.com/google/uuid) so the same ID
// can be embedded into the chunk-store header and vector build marker before
// the manifest itself is written.
func NewManifest(buildID, toolVersion string, embeddingDims int, artifacts model.ArtifactDescriptor, generatedAt time.Time) *model.BuildManifest {
	return &model.BuildManifest{
		MetaVersion:   model.CompiledMetaVersion,
		FormatVersion: model.CompiledFormatVersion,
		BuildID:       buildID,
		GeneratedAt:   generatedAt,
		ToolVersion:   toolVersion,
		Artifacts:     artifacts,
		EmbeddingDims: embeddingDims,
	}
}
