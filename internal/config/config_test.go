package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsBalancedHybridWeights(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, "deterministic", cfg.Embeddings.Provider)
	assert.Equal(t, 256, cfg.Embeddings.Dimensions)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Contains(t, cfg.Paths.Exclude, "**/node_modules/**")
}

func TestLoad_NoProjectFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, Default().Search.RRFConstant, cfg.Search.RRFConstant)
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	content := "search:\n  max_results: 15\n  bm25_weight: 0.7\n  semantic_weight: 0.3\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".codebase-context.yaml"), []byte(content), 0o644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 15, cfg.Search.MaxResults)
	assert.Equal(t, 0.7, cfg.Search.BM25Weight)
}

func TestLoad_InvalidYAMLReturnsError(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".codebase-context.yaml"), []byte("not: [valid"), 0o644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesApplyOnTopOfProjectFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := "search:\n  bm25_weight: 0.3\n  semantic_weight: 0.7\n  rrf_constant: 45\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".codebase-context.yaml"), []byte(content), 0o644))
	t.Setenv("CTXD_BM25_WEIGHT", "0.8")
	t.Setenv("CTXD_SEMANTIC_WEIGHT", "0.2")
	t.Setenv("CTXD_RRF_CONSTANT", "30")
	t.Setenv("CTXD_EMBEDDING_PROVIDER", "openai")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Search.BM25Weight)
	assert.Equal(t, 0.2, cfg.Search.SemanticWeight)
	assert.Equal(t, 30, cfg.Search.RRFConstant)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
}

func TestLoad_InvalidEnvValueFallsBackToDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CTXD_RRF_CONSTANT", "not-a-number")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, Default().Search.RRFConstant, cfg.Search.RRFConstant)
}

func TestValidate_RejectsNonPositiveRRFConstant(t *testing.T) {
	cfg := Default()
	cfg.Search.RRFConstant = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsNonPositiveDimensions(t *testing.T) {
	cfg := Default()
	cfg.Embeddings.Dimensions = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := Default()
	cfg.Search.BM25Weight = 0.9
	cfg.Search.SemanticWeight = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestContextDir_JoinsProjectRoot(t *testing.T) {
	assert.Equal(t, filepath.Join("proj", ".codebase-context"), ContextDir("proj"))
}

func TestFindProjectRoot_StopsAtGitDir(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, ".git"), 0o755))
	nested := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_StopsAtConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".codebase-context.yaml"), []byte("version: 1"), 0o644))
	nested := filepath.Join(tmpDir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	root, err := FindProjectRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindProjectRoot_FallsBackToStartDirWhenNoMarkerFound(t *testing.T) {
	tmpDir := t.TempDir()
	root, err := FindProjectRoot(tmpDir)
	require.NoError(t, err)
	resolved, _ := filepath.EvalSymlinks(tmpDir)
	assert.Contains(t, []string{tmpDir, resolved}, root)
}

func TestConfig_String_RendersYAML(t *testing.T) {
	out := Default().String()
	assert.Contains(t, out, "rrf_constant: 60")
}
