package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/ctxd/internal/config"
	"github.com/codectx/ctxd/internal/embedadapter"
	"github.com/codectx/ctxd/internal/indexstore"
	"github.com/codectx/ctxd/internal/intel"
	"github.com/codectx/ctxd/internal/model"
	"github.com/codectx/ctxd/internal/retrieval"
)

// lineChunker turns each non-blank line of a file into its own chunk, named
// after the file and line index. Enough surface to drive the engine's full
// build-then-query path without depending on internal/chunker.
type lineChunker struct{}

func (lineChunker) Chunk(_ context.Context, _, relPath, language string, content []byte) ([]*model.Chunk, error) {
	var out []*model.Chunk
	for i, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, &model.Chunk{
			ID:            fmt.Sprintf("%s:%d", relPath, i),
			RelPath:       relPath,
			Language:      language,
			ComponentName: fmt.Sprintf("%s_%d", strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath)), i),
			ComponentType: "function",
			Content:       line,
			StartLine:     i + 1,
			EndLine:       i + 1,
		})
	}
	return out, nil
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestEngine(root string) *Engine {
	cfg := config.Default()
	cfg.Embeddings.Dimensions = 32
	embedder := embedadapter.NewStaticEmbedder(32)
	return New(root, cfg, lineChunker{}, embedder, nil, nil, "test-tool")
}

func TestEngine_RefreshIndex_ThenSearch_FindsIndexedFunction(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "widget.go", "package widget\nfunc RenderWidget() {}\nfunc helperStuff() {}\n")

	e := newTestEngine(root)
	stats, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalFiles)

	outcome, err := e.Search(context.Background(), "RenderWidget", 5, retrieval.Filters{}, retrieval.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)

	var found bool
	for _, r := range outcome.Results {
		if strings.Contains(r.Chunk.Content, "RenderWidget") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestEngine_Search_EmptyQueryIsInvalid(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	_, err = e.Search(context.Background(), "", 5, retrieval.Filters{}, retrieval.DefaultOptions())
	require.Error(t, err)
}

func TestEngine_FindReferences_LocatesWholeWordOccurrences(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc callFoo() { foo() }\nfunc other() { fooBar() }\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	result, err := e.FindReferences(context.Background(), "foo", 20)
	require.NoError(t, err)
	assert.True(t, result.UsageCount >= 1)
}

func TestEngine_GetIndexingStatus_ReportsBuildIdentity(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	status, err := e.GetIndexingStatus(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, status.BuildID)
	assert.Equal(t, "test-tool", status.ToolVersion)
	assert.Equal(t, 2, status.TotalChunks)
}

func TestEngine_DetectCycles_EmptyGraphHasNoCycles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	cycles, err := e.DetectCycles(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cycles)
}

// TestEngine_Search_AutoHealsCorruptedManifest covers the heal path end-to-end: a
// manifest whose format_version can no longer be read is Corrupted, triggers
// exactly one rebuild, and the retried search succeeds against the rebuilt
// index.
func TestEngine_Search_AutoHealsCorruptedManifest(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc AlphaWidget() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	contextDir := config.ContextDir(root)
	manifestPath := filepath.Join(contextDir, indexstore.ManifestFileName)
	raw, err := os.ReadFile(manifestPath)
	require.NoError(t, err)
	corrupted := strings.Replace(string(raw), `"format_version":`, `"format_version_x":`, 1)
	require.NoError(t, os.WriteFile(manifestPath, []byte(corrupted), 0o644))

	e.invalidate()

	outcome, err := e.Search(context.Background(), "AlphaWidget", 5, retrieval.Filters{}, retrieval.DefaultOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, outcome.Results)
}

func TestEngine_Doctor_FreshBuildIsConsistent(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	result, err := e.Doctor(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Clean())
	assert.Equal(t, 2, result.CheckedChunks)
}

func TestEngine_GetIndexingStatus_IncludesArtifactSizes(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	status, err := e.GetIndexingStatus(context.Background())
	require.NoError(t, err)
	assert.Positive(t, status.Info.KeywordStoreBytes)
	assert.Positive(t, status.Info.VectorStoreBytes)
	assert.True(t, status.Info.EmbedderCompatible)
}

// A standalone relationships artifact overrides the graph embedded in the
// intelligence sidecar, so cycle detection follows the standalone copy.
func TestEngine_DetectCycles_PrefersRelationshipsArtifact(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\nfunc A() {}\n")
	writeSource(t, root, "b.go", "package a\nfunc B() {}\n")
	e := newTestEngine(root)
	_, err := e.RefreshIndex(context.Background(), false)
	require.NoError(t, err)

	contextDir := config.ContextDir(root)
	require.NoError(t, intel.SaveRelationships(filepath.Join(contextDir, "relationships.json"), map[string][]string{
		"a.go": {"b.go"},
		"b.go": {"a.go"},
	}))
	e.invalidate()

	cycles, err := e.DetectCycles(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].Nodes, 2)
}
