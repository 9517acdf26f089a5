package indexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWalk_SkipsExcludedAndBinaryFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "src/main.go", "package main\n")
	writeTestFile(t, root, "node_modules/pkg/index.js", "module.exports = {}")
	writeTestFile(t, root, "bin/app", string([]byte{0x00, 0x01, 0x02}))

	files, err := Walk(root, []string{"node_modules"}, 0)
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.RelPath)
	}
	assert.Contains(t, paths, "src/main.go")
	assert.NotContains(t, paths, "node_modules/pkg/index.js")
	assert.NotContains(t, paths, "bin/app")
}

func TestWalk_SortsByRelativePath(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "b.go", "package b")
	writeTestFile(t, root, "a.go", "package a")

	files, err := Walk(root, nil, 0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.go", files[0].RelPath)
	assert.Equal(t, "b.go", files[1].RelPath)
}

func TestWalk_SkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "huge.go", "package huge\n// filler\n")

	files, err := Walk(root, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestHashContent_IsDeterministic(t *testing.T) {
	a := hashContent([]byte("hello"))
	b := hashContent([]byte("hello"))
	c := hashContent([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestIsBinary(t *testing.T) {
	assert.True(t, isBinary([]byte{0x00, 'a', 'b'}))
	assert.False(t, isBinary([]byte("plain text content")))
}
