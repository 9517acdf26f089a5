package retrieval

import (
	"regexp"
	"strings"

	"github.com/codectx/ctxd/internal/errs"
	"github.com/codectx/ctxd/internal/model"
)

// Usage is one occurrence of a referenced symbol.
type Usage struct {
	Path    string
	Line    int
	Preview string
}

// ReferenceResult is the symbol-reference finder's output.
type ReferenceResult struct {
	Symbol      string
	Usages      []Usage
	UsageCount  int
	Confidence  string
	IsComplete  bool
}

// FindReferences locates whole-word occurrences of symbol across chunks,
// with a 3-line preview per match and truncation accounting.
// header/expected let the caller fail closed on a chunk-store
// build mismatch before scanning.
func FindReferences(chunks []*model.Chunk, header, expected model.ChunkStoreHeader, symbol string, limit int) (*ReferenceResult, error) {
	if header.BuildID != expected.BuildID || header.FormatVersion != expected.FormatVersion {
		return nil, errs.Corrupted("chunk store header does not match active manifest")
	}

	pattern := wholeWordPattern(symbol)

	var usages []Usage
	usageCount := 0
	for _, chunk := range chunks {
		if chunk.Content == "" {
			continue
		}
		locs := pattern.FindAllStringIndex(chunk.Content, -1)
		for _, loc := range locs {
			usageCount++
			if len(usages) >= limit {
				continue
			}
			lineOffset := strings.Count(chunk.Content[:loc[0]], "\n")
			fileLine := chunk.StartLine + lineOffset
			usages = append(usages, Usage{
				Path:    chunk.RelPath,
				Line:    fileLine,
				Preview: preview(chunk.Content, loc[0]),
			})
		}
	}

	return &ReferenceResult{
		Symbol:     symbol,
		Usages:     usages,
		UsageCount: usageCount,
		Confidence: "syntactic",
		IsComplete: usageCount < limit+1,
	}, nil
}

// wholeWordPattern matches symbol with word boundaries on both sides,
// treating underscores as word characters (Go regexp's \b already does,
// since \w includes _).
func wholeWordPattern(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)
}

// preview builds a 3-line window centered on the line containing offset.
func preview(content string, offset int) string {
	lines := strings.Split(content, "\n")
	lineIdx := strings.Count(content[:offset], "\n")

	start := lineIdx - 1
	if start < 0 {
		start = 0
	}
	end := lineIdx + 1
	if end > len(lines)-1 {
		end = len(lines) - 1
	}
	return strings.Join(lines[start:end+1], "\n")
}
