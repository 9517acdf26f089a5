package chunker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codectx/ctxd/internal/model"
)

const goSource = `package widget

import (
	"fmt"
)

// Widget does a thing.
type Widget struct {
	Name string
}

func NewWidget(name string) *Widget {
	return &Widget{Name: name}
}

func (w *Widget) Greet() string {
	return fmt.Sprintf("hello %s", w.Name)
}
`

func TestTreeSitterChunker_Go_ProducesOneChunkPerSymbol(t *testing.T) {
	c := NewTreeSitterChunker()
	chunks, err := c.Chunk(context.Background(), "/repo/widget.go", "widget.go", "go", []byte(goSource))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	names := map[string]string{}
	for _, ch := range chunks {
		names[ch.ComponentName] = ch.ComponentType
		assert.LessOrEqual(t, ch.StartLine, ch.EndLine)
		assert.Equal(t, model.ContentTypeCode, ch.ContentType)
	}
	assert.Equal(t, "function", names["NewWidget"])
	assert.Equal(t, "method", names["Greet"])
	assert.Equal(t, "type", names["Widget"])
}

func TestTreeSitterChunker_Go_ExtractsImports(t *testing.T) {
	c := NewTreeSitterChunker()
	chunks, err := c.Chunk(context.Background(), "/repo/widget.go", "widget.go", "go", []byte(goSource))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Imports, "fmt")
}

func TestTreeSitterChunker_EmptyContentReturnsNil(t *testing.T) {
	c := NewTreeSitterChunker()
	chunks, err := c.Chunk(context.Background(), "/repo/empty.go", "empty.go", "go", nil)
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestTreeSitterChunker_UnsupportedLanguageFallsBackToLineChunks(t *testing.T) {
	c := NewTreeSitterChunker()
	content := make([]byte, 0, 300*5)
	for i := 0; i < 300; i++ {
		content = append(content, []byte("line of text\n")...)
	}
	chunks, err := c.Chunk(context.Background(), "/repo/notes.rs", "notes.rs", "rust", content)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Equal(t, model.ContentTypeText, chunks[0].ContentType)
}

func TestChunkMarkdown_OneChunkPerSection(t *testing.T) {
	content := []byte("# Title\n\nintro\n\n## Section A\n\nbody a\n\n## Section B\n\nbody b\n")
	chunks := chunkMarkdown("README.md", content)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Title", chunks[0].ComponentName)
	assert.Equal(t, "Section A", chunks[1].ComponentName)
	assert.Equal(t, "Section B", chunks[2].ComponentName)
	assert.Contains(t, chunks[1].Content, "body a")
}

func TestChunkMarkdown_NoHeadersYieldsSingleDocumentChunk(t *testing.T) {
	chunks := chunkMarkdown("notes.md", []byte("just some prose, no headings"))
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"document"}, chunks[0].Tags)
}

func TestChunkMarkdown_EmptyContentReturnsNil(t *testing.T) {
	assert.Nil(t, chunkMarkdown("empty.md", []byte("   \n  ")))
}

func TestChunkByLines_SplitsIntoFixedSizeBlocks(t *testing.T) {
	var lines []byte
	for i := 0; i < 300; i++ {
		lines = append(lines, []byte("x\n")...)
	}
	chunks := chunkByLines("big.txt", "text", lines)
	require.Len(t, chunks, 3) // 300 lines / 128 per chunk -> 3 blocks
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 128, chunks[0].EndLine)
}

func TestPythonImportTokens(t *testing.T) {
	assert.Equal(t, []string{"os.path"}, pythonImportTokens("import os.path"))
	assert.Equal(t, []string{"mypkg.sub"}, pythonImportTokens("from mypkg.sub import thing"))
	assert.Nil(t, pythonImportTokens(""))
}
