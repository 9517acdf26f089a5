package indexer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/ctxd/internal/model"
)

func TestCollectIndexInfo_SizesAndCompatibility(t *testing.T) {
	contextDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(contextDir, "index.json"), make([]byte, 100), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(contextDir, "intelligence.json"), make([]byte, 40), 0o644))
	vectorDir := filepath.Join(contextDir, "index")
	require.NoError(t, os.MkdirAll(vectorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vectorDir, "graph.gob"), make([]byte, 200), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vectorDir, "index-build.json"), make([]byte, 50), 0o644))

	manifest := &model.BuildManifest{
		BuildID:       "build-1",
		GeneratedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ToolVersion:   "1.0.0",
		FormatVersion: model.CompiledFormatVersion,
		EmbeddingDims: 128,
		Artifacts: model.ArtifactDescriptor{
			KeywordStorePath: "index.json",
			VectorStorePath:  "index",
			IntelligencePath: "intelligence.json",
		},
	}

	info := CollectIndexInfo(contextDir, manifest, 42, 128)
	assert.Equal(t, "build-1", info.BuildID)
	assert.Equal(t, 42, info.TotalChunks)
	assert.Equal(t, int64(100), info.KeywordStoreBytes)
	assert.Equal(t, int64(250), info.VectorStoreBytes)
	assert.Equal(t, int64(40), info.IntelligenceBytes)
	assert.True(t, info.EmbedderCompatible)

	mismatched := CollectIndexInfo(contextDir, manifest, 42, 256)
	assert.False(t, mismatched.EmbedderCompatible)
}

func TestCollectIndexInfo_MissingArtifactsAreZeroBytes(t *testing.T) {
	manifest := &model.BuildManifest{
		Artifacts: model.ArtifactDescriptor{
			KeywordStorePath: "index.json",
			VectorStorePath:  "index",
			IntelligencePath: "intelligence.json",
		},
	}

	info := CollectIndexInfo(t.TempDir(), manifest, 0, 0)
	assert.Equal(t, int64(0), info.KeywordStoreBytes)
	assert.Equal(t, int64(0), info.VectorStoreBytes)
}
