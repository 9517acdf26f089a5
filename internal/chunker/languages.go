package chunker

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageConfig describes how to recognize symbol-defining nodes for one
// language.
type languageConfig struct {
	name           string
	tsLanguage     *sitter.Language
	functionTypes  []string
	methodTypes    []string
	classTypes     []string
	interfaceTypes []string
	typeDefTypes   []string
	constantTypes  []string
	variableTypes  []string
	importTypes    []string
}

var languageConfigs = map[string]*languageConfig{
	"go": {
		name:          "go",
		tsLanguage:    golang.GetLanguage(),
		functionTypes: []string{"function_declaration"},
		methodTypes:   []string{"method_declaration"},
		typeDefTypes:  []string{"type_declaration"},
		constantTypes: []string{"const_declaration"},
		variableTypes: []string{"var_declaration"},
		importTypes:   []string{"import_declaration"},
	},
	"typescript": {
		name:           "typescript",
		tsLanguage:     typescript.GetLanguage(),
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_definition"},
		classTypes:     []string{"class_declaration"},
		interfaceTypes: []string{"interface_declaration"},
		typeDefTypes:   []string{"type_alias_declaration"},
		constantTypes:  []string{"lexical_declaration"},
		variableTypes:  []string{"variable_declaration"},
		importTypes:    []string{"import_statement"},
	},
	"tsx": {
		name:           "tsx",
		tsLanguage:     tsx.GetLanguage(),
		functionTypes:  []string{"function_declaration"},
		methodTypes:    []string{"method_definition"},
		classTypes:     []string{"class_declaration"},
		interfaceTypes: []string{"interface_declaration"},
		typeDefTypes:   []string{"type_alias_declaration"},
		constantTypes:  []string{"lexical_declaration"},
		variableTypes:  []string{"variable_declaration"},
		importTypes:    []string{"import_statement"},
	},
	"javascript": {
		name:          "javascript",
		tsLanguage:    javascript.GetLanguage(),
		functionTypes: []string{"function_declaration", "function"},
		methodTypes:   []string{"method_definition"},
		classTypes:    []string{"class_declaration"},
		constantTypes: []string{"lexical_declaration"},
		variableTypes: []string{"variable_declaration"},
		importTypes:   []string{"import_statement"},
	},
	"jsx": {
		name:          "jsx",
		tsLanguage:    javascript.GetLanguage(),
		functionTypes: []string{"function_declaration", "function"},
		methodTypes:   []string{"method_definition"},
		classTypes:    []string{"class_declaration"},
		constantTypes: []string{"lexical_declaration"},
		variableTypes: []string{"variable_declaration"},
		importTypes:   []string{"import_statement"},
	},
	"python": {
		name:          "python",
		tsLanguage:    python.GetLanguage(),
		functionTypes: []string{"function_definition"},
		classTypes:    []string{"class_definition"},
		variableTypes: []string{"assignment"},
		importTypes:   []string{"import_statement", "import_from_statement"},
	},
}

func languageByName(name string) (*languageConfig, bool) {
	cfg, ok := languageConfigs[name]
	return cfg, ok
}
