package chunker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// TreeSitterChunker implements indexer.Chunker over the languages in
// languageConfigs, falling back to header-based chunking for markdown and
// line-based chunking for anything else.
type TreeSitterChunker struct{}

// NewTreeSitterChunker creates a chunker. Each call to Chunk gets its own
// tree-sitter parser instance, since sitter.Parser is not goroutine-safe.
func NewTreeSitterChunker() *TreeSitterChunker {
	return &TreeSitterChunker{}
}

// Chunk implements indexer.Chunker.
func (t *TreeSitterChunker) Chunk(ctx context.Context, absPath, relPath, language string, content []byte) ([]*model.Chunk, error) {
	if len(content) == 0 {
		return nil, nil
	}
	if language == "markdown" {
		return chunkMarkdown(relPath, content), nil
	}

	cfg, ok := languageByName(language)
	if !ok {
		return chunkByLines(relPath, language, content), nil
	}

	p := newParser()
	defer p.close()
	root, err := p.parse(ctx, content, cfg)
	if err != nil {
		return chunkByLines(relPath, language, content), nil
	}

	imports := extractImports(root, content, cfg, language)
	symbols := extractSymbols(root, content, cfg, language)
	if len(symbols) == 0 {
		return chunkByLines(relPath, language, content), nil
	}

	var exports []string
	for _, s := range symbols {
		if s.Exported {
			exports = append(exports, s.Name)
		}
	}

	chunks := make([]*model.Chunk, 0, len(symbols))
	lines := strings.Split(string(content), "\n")
	for _, sym := range symbols {
		body := sliceLines(lines, sym.StartLine, sym.EndLine)
		chunks = append(chunks, &model.Chunk{
			ID:            chunkID(relPath, sym.StartLine, sym.Name),
			AbsPath:       absPath,
			RelPath:       relPath,
			StartLine:     sym.StartLine,
			EndLine:       sym.EndLine,
			Language:      language,
			ComponentType: string(sym.Type),
			ComponentName: sym.Name,
			SymbolPath:    []string{sym.Name},
			Content:       body,
			Imports:       imports,
			Exports:       exports,
			Tags:          []string{string(sym.Type), language},
			ContentType:   model.ContentTypeCode,
			Complexity:    complexityOf(sym),
		})
	}
	return chunks, nil
}

func complexityOf(sym Symbol) *float64 {
	lines := float64(sym.EndLine - sym.StartLine + 1)
	v := lines / 20.0
	return &v
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func chunkID(relPath string, startLine int, name string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s", relPath, startLine, name)))
	return hex.EncodeToString(sum[:])[:16]
}

// extractImports collects file-level import declarations. Raw import text is
// reduced to bare module/path strings so the indexer's import-graph
// resolution (basename lookup against known files) has something to match.
func extractImports(root *node, source []byte, cfg *languageConfig, language string) []string {
	var raw []string
	for _, importType := range cfg.importTypes {
		for _, n := range root.childrenByType(importType) {
			raw = append(raw, n.content(source))
		}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, block := range raw {
		for _, path := range quotedStrings.FindAllStringSubmatch(block, -1) {
			val := path[1]
			if val == "" {
				continue
			}
			if _, dup := seen[val]; dup {
				continue
			}
			seen[val] = struct{}{}
			out = append(out, val)
		}
	}
	if language == "python" {
		for _, block := range raw {
			for _, tok := range pythonImportTokens(block) {
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				out = append(out, tok)
			}
		}
	}
	return out
}

var quotedStrings = regexp.MustCompile(`["']([^"']+)["']`)

func pythonImportTokens(stmt string) []string {
	stmt = strings.TrimSpace(stmt)
	var module string
	switch {
	case strings.HasPrefix(stmt, "from "):
		rest := strings.TrimPrefix(stmt, "from ")
		parts := strings.SplitN(rest, " import", 2)
		module = strings.TrimSpace(parts[0])
	case strings.HasPrefix(stmt, "import "):
		rest := strings.TrimPrefix(stmt, "import ")
		parts := strings.SplitN(rest, ",", 2)
		module = strings.TrimSpace(parts[0])
		if fields := strings.Fields(module); len(fields) > 0 {
			module = fields[0]
		}
	}
	if module == "" {
		return nil
	}
	return []string{module}
}

// chunkByLines is the fallback for unsupported languages or parse failures.
func chunkByLines(relPath, language string, content []byte) []*model.Chunk {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	const linesPerChunk = 128
	var chunks []*model.Chunk
	for i := 0; i < len(lines); i += linesPerChunk {
		end := i + linesPerChunk
		if end > len(lines) {
			end = len(lines)
		}
		start := i + 1
		chunks = append(chunks, &model.Chunk{
			ID:          chunkID(relPath, start, "block"),
			RelPath:     relPath,
			StartLine:   start,
			EndLine:     end,
			Language:    language,
			Content:     strings.Join(lines[i:end], "\n"),
			ContentType: model.ContentTypeText,
		})
	}
	return chunks
}
