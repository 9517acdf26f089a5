package chunker

import (
	"regexp"
	"strings"

	"github.com/codectx/ctxd/internal/model"
)

// headerPattern matches "# Title", "## Title", and deeper heading levels.
var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// chunkMarkdown splits markdown into one chunk per heading (the content
// from one heading up to, but not including, the next heading of any
// level).
func chunkMarkdown(relPath string, content []byte) []*model.Chunk {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	matches := headerPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []*model.Chunk{{
			ID:          chunkID(relPath, 1, "document"),
			RelPath:     relPath,
			StartLine:   1,
			EndLine:     strings.Count(text, "\n") + 1,
			Language:    "markdown",
			Content:     text,
			ContentType: model.ContentTypeMarkdown,
			Tags:        []string{"document"},
		}}
	}

	var chunks []*model.Chunk
	for i, m := range matches {
		sectionStart := m[0]
		sectionEnd := len(text)
		if i+1 < len(matches) {
			sectionEnd = matches[i+1][0]
		}
		heading := strings.TrimSpace(text[m[4]:m[5]])
		body := text[sectionStart:sectionEnd]
		startLine := strings.Count(text[:sectionStart], "\n") + 1
		endLine := startLine + strings.Count(body, "\n")

		chunks = append(chunks, &model.Chunk{
			ID:            chunkID(relPath, startLine, heading),
			RelPath:       relPath,
			StartLine:     startLine,
			EndLine:       endLine,
			Language:      "markdown",
			ComponentType: "section",
			ComponentName: heading,
			SymbolPath:    []string{heading},
			Content:       strings.TrimRight(body, "\n"),
			ContentType:   model.ContentTypeMarkdown,
			Tags:          []string{"section"},
		})
	}
	return chunks
}
