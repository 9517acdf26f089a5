package indexstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/model"
)

func unitVector(dims int, hot int) []float32 {
	v := make([]float32, dims)
	v[hot] = 1.0
	return v
}

func chunkWithEmbedding(id string, embedding []float32, componentType string) *model.Chunk {
	return &model.Chunk{ID: id, RelPath: id, Embedding: embedding, ComponentType: componentType}
}

func TestVectorStore_Upsert_RejectsDimensionMismatch(t *testing.T) {
	s := NewVectorStore(4)
	err := s.Upsert(context.Background(), []*model.Chunk{chunkWithEmbedding("a", []float32{1, 0}, "")})
	require.Error(t, err)
	assert.Equal(t, errs.ErrCodeDimensionMismatch, errs.Code(err))
}

func TestVectorStore_CosineKNN_ReturnsNearestFirst(t *testing.T) {
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{
		chunkWithEmbedding("exact", unitVector(3, 0), ""),
		chunkWithEmbedding("orthogonal", unitVector(3, 1), ""),
	}))

	hits, err := s.CosineKNN(context.Background(), unitVector(3, 0), 2, VectorFilters{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "exact", hits[0].ChunkID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)
}

func TestVectorStore_CosineKNN_AppliesMetadataFilter(t *testing.T) {
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{
		chunkWithEmbedding("svc", unitVector(3, 0), "service"),
		chunkWithEmbedding("ctrl", unitVector(3, 0), "controller"),
	}))

	hits, err := s.CosineKNN(context.Background(), unitVector(3, 0), 5, VectorFilters{ComponentType: "service"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "svc", hits[0].ChunkID)
}

func TestVectorStore_DeleteByPaths_ExcludesFromFutureQueries(t *testing.T) {
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{
		chunkWithEmbedding("keep", unitVector(3, 0), ""),
		chunkWithEmbedding("gone", unitVector(3, 0), ""),
	}))
	require.NoError(t, s.DeleteByPaths(context.Background(), []string{"gone"}))
	assert.Equal(t, 1, s.Count())

	hits, err := s.CosineKNN(context.Background(), unitVector(3, 0), 5, VectorFilters{})
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "gone", h.ChunkID)
	}
}

func TestVectorStore_Upsert_ReplacesExistingChunkID(t *testing.T) {
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{chunkWithEmbedding("a", unitVector(3, 0), "")}))
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{chunkWithEmbedding("a", unitVector(3, 1), "")}))
	assert.Equal(t, 1, s.Count())
}

func TestVectorStore_SaveLoad_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vectors")
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{
		chunkWithEmbedding("a", unitVector(3, 0), "service"),
	}))
	marker := model.VectorBuildMarker{BuildID: "build-1", FormatVersion: model.CompiledFormatVersion, Provider: "hnsw-cosine"}
	require.NoError(t, s.Save(dir, marker))

	loaded, loadedMarker, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "build-1", loadedMarker.BuildID)
	assert.Equal(t, 1, loaded.Count())

	hits, err := loaded.CosineKNN(context.Background(), unitVector(3, 0), 1, VectorFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestVectorStore_Load_MissingDirIsCorrupted(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errs.IsCorrupted(err))
}

func TestVectorStore_DropAll_EmptiesStore(t *testing.T) {
	s := NewVectorStore(3)
	require.NoError(t, s.Upsert(context.Background(), []*model.Chunk{chunkWithEmbedding("a", unitVector(3, 0), "")}))
	require.NoError(t, s.DropAll(context.Background()))
	assert.Equal(t, 0, s.Count())
}

func TestIsCorruptedStorageError(t *testing.T) {
	assert.True(t, IsCorruptedStorageError(errs.Corrupted("no vector column found")))
	assert.True(t, IsCorruptedStorageError(errs.New(errs.ErrCodeIndexCorrupted, errs.CodeIndexCorrupted, "schema drift detected", nil)))
	assert.False(t, IsCorruptedStorageError(nil))
	assert.False(t, IsCorruptedStorageError(assert.AnError))
}
