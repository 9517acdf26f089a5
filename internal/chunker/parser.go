package chunker

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// parser wraps tree-sitter.
type parser struct {
	ts *sitter.Parser
}

func newParser() *parser {
	return &parser{ts: sitter.NewParser()}
}

func (p *parser) close() {
	if p.ts != nil {
		p.ts.Close()
	}
}

func (p *parser) parse(ctx context.Context, source []byte, cfg *languageConfig) (*node, error) {
	p.ts.SetLanguage(cfg.tsLanguage)
	tree, err := p.ts.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse source as %s: %w", cfg.name, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parse source as %s: nil tree", cfg.name)
	}
	return convertNode(tree.RootNode()), nil
}
