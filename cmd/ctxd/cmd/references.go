package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
)

func newReferencesCmd() *cobra.Command {
	var limit int
	var offline bool

	cmd := &cobra.Command{
		Use:   "references <symbol>",
		Short: "Find whole-word occurrences of a symbol in the indexed codebase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := args[0]

			eng, _, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			result, err := eng.FindReferences(cmd.Context(), symbol, limit)
			if err != nil {
				return fmt.Errorf("references: %w", err)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("🔗", "%d usages of %q (confidence: %s)", result.UsageCount, result.Symbol, result.Confidence)
			if !result.IsComplete {
				out.Warning("result list truncated; raise --limit for more")
			}
			for _, u := range result.Usages {
				out.Statusf("", "%s:%d", u.Path, u.Line)
				out.Status("", "   "+u.Preview)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of usages to report")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}
