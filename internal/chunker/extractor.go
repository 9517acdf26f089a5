package chunker

// extractSymbols walks a parsed file and returns one Symbol per
// symbol-defining node.
func extractSymbols(root *node, source []byte, cfg *languageConfig, language string) []Symbol {
	var symbols []Symbol
	root.walk(func(n *node) bool {
		if sym, ok := symbolFromNode(n, source, cfg, language); ok {
			symbols = append(symbols, sym)
		}
		return true
	})
	return symbols
}

func symbolFromNode(n *node, source []byte, cfg *languageConfig, language string) (Symbol, bool) {
	symType, ok := classify(n.typ(), cfg)
	if !ok {
		return Symbol{}, false
	}
	name := extractName(n, source, language)
	if name == "" {
		return Symbol{}, false
	}
	return Symbol{
		Name:      name,
		Type:      symType,
		StartLine: n.startLine(),
		EndLine:   n.endLine(),
		Exported:  isExported(name, n, source, language),
	}, true
}

func classify(nodeType string, cfg *languageConfig) (SymbolType, bool) {
	switch {
	case containsStr(cfg.functionTypes, nodeType):
		return SymbolFunction, true
	case containsStr(cfg.methodTypes, nodeType):
		return SymbolMethod, true
	case containsStr(cfg.classTypes, nodeType):
		return SymbolClass, true
	case containsStr(cfg.interfaceTypes, nodeType):
		return SymbolInterface, true
	case containsStr(cfg.typeDefTypes, nodeType):
		return SymbolTypeDef, true
	case containsStr(cfg.constantTypes, nodeType):
		return SymbolConstant, true
	case containsStr(cfg.variableTypes, nodeType):
		return SymbolVariable, true
	default:
		return "", false
	}
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func extractName(n *node, source []byte, language string) string {
	switch language {
	case "go":
		return extractGoName(n, source)
	case "typescript", "tsx", "javascript", "jsx":
		return extractJSFamilyName(n, source)
	case "python":
		return extractPythonName(n, source)
	default:
		if c := n.firstChildByType("identifier"); c != nil {
			return c.content(source)
		}
		return ""
	}
}

func extractGoName(n *node, source []byte) string {
	switch n.typ() {
	case "function_declaration":
		if c := n.firstChildByType("identifier"); c != nil {
			return c.content(source)
		}
	case "method_declaration":
		if c := n.firstChildByType("field_identifier"); c != nil {
			return c.content(source)
		}
	case "type_declaration":
		for _, spec := range n.childrenByType("type_spec") {
			if c := spec.firstChildByType("type_identifier"); c != nil {
				return c.content(source)
			}
		}
	case "const_declaration":
		for _, spec := range n.childrenByType("const_spec") {
			if c := spec.firstChildByType("identifier"); c != nil {
				return c.content(source)
			}
		}
	case "var_declaration":
		for _, spec := range n.childrenByType("var_spec") {
			if c := spec.firstChildByType("identifier"); c != nil {
				return c.content(source)
			}
		}
	}
	return ""
}

func extractJSFamilyName(n *node, source []byte) string {
	if n.typ() == "lexical_declaration" || n.typ() == "variable_declaration" {
		for _, decl := range n.childrenByType("variable_declarator") {
			if c := decl.firstChildByType("identifier"); c != nil {
				return c.content(source)
			}
		}
		return ""
	}
	if c := n.firstChildByType("identifier"); c != nil {
		return c.content(source)
	}
	if c := n.firstChildByType("type_identifier"); c != nil {
		return c.content(source)
	}
	return ""
}

func extractPythonName(n *node, source []byte) string {
	if c := n.firstChildByType("identifier"); c != nil {
		return c.content(source)
	}
	return ""
}

// isExported applies each language's visibility convention so the indexer
// can populate Chunk.Exports for the import graph and WIRING-intent boosts.
func isExported(name string, n *node, source []byte, language string) bool {
	switch language {
	case "go":
		return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
	case "typescript", "tsx", "javascript", "jsx":
		return true // every JS-family symbol counts as exported; the export keyword is not inspected
	case "python":
		return len(name) == 0 || name[0] != '_'
	default:
		return true
	}
}
