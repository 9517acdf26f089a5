package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
	"github.com/codectx/ctxd/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	var (
		limit      int
		format     string
		framework  string
		language   string
		tags       []string
		noSemantic bool
		noLexical  bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]

			eng, _, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			filters := retrieval.Filters{Framework: framework, Language: language, Tags: tags}
			opts := retrieval.DefaultOptions()
			opts.UseSemanticSearch = !noSemantic
			opts.UseLexicalSearch = !noLexical

			outcome, err := eng.Search(cmd.Context(), query, limit, filters, opts)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			switch format {
			case "json":
				return formatSearchJSON(cmd, outcome)
			default:
				return formatSearchText(output.New(cmd.OutOrStdout()), query, outcome)
			}
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of results")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&framework, "framework", "", "Filter by framework")
	cmd.Flags().StringVar(&language, "language", "", "Filter by language")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Filter by tags")
	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "Disable the semantic search channel")
	cmd.Flags().BoolVar(&noLexical, "no-lexical", false, "Disable the lexical search channel")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}

func formatSearchText(out *output.Writer, query string, outcome retrieval.Outcome) error {
	out.Statusf("🔍", "Found %d results for %q (%s):", len(outcome.Results), query, outcome.Assessment.Status)
	out.Newline()

	for i, r := range outcome.Results {
		if r.Chunk == nil {
			continue
		}
		location := r.Chunk.RelPath
		if r.Chunk.StartLine > 0 {
			location = fmt.Sprintf("%s:%d", r.Chunk.RelPath, r.Chunk.StartLine)
		}
		out.Statusf("", "%d. %s (score: %.3f)", i+1, location, r.Score)
		for _, line := range snippetLines(r.Snippet, 3) {
			out.Status("", "   "+line)
		}
		out.Newline()
	}

	if outcome.Rescued {
		out.Warning("low-confidence results rescued with an expanded query")
	}
	for _, step := range outcome.Assessment.NextSteps {
		out.Status("💡", step)
	}
	return nil
}

func formatSearchJSON(cmd *cobra.Command, outcome retrieval.Outcome) error {
	type jsonResult struct {
		Path      string   `json:"path"`
		StartLine int      `json:"start_line"`
		EndLine   int      `json:"end_line"`
		Score     float64  `json:"score"`
		Snippet   string   `json:"snippet"`
		Language  string   `json:"language"`
		Symbol    string   `json:"symbol,omitempty"`
		Tags      []string `json:"tags,omitempty"`
	}

	results := make([]jsonResult, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		jr := jsonResult{Score: r.Score, Snippet: r.Snippet}
		if r.Chunk != nil {
			jr.Path = r.Chunk.RelPath
			jr.StartLine = r.Chunk.StartLine
			jr.EndLine = r.Chunk.EndLine
			jr.Language = r.Chunk.Language
			jr.Symbol = r.Chunk.SymbolName()
			jr.Tags = r.Chunk.Tags
		}
		results = append(results, jr)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Status  string       `json:"status"`
		Rescued bool         `json:"rescued"`
		Results []jsonResult `json:"results"`
	}{Status: string(outcome.Assessment.Status), Rescued: outcome.Rescued, Results: results})
}

// snippetLines trims a snippet down to at most n lines for terminal display.
func snippetLines(snippet string, n int) []string {
	lines := strings.Split(strings.TrimRight(snippet, "\n"), "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	return lines
}
