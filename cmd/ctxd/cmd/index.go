package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
)

func newIndexCmd() *cobra.Command {
	var full bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build or refresh the project's index",
		Long: `index scans the project, chunks and embeds changed files, and writes
a new index manifest. By default it runs incrementally against the existing
manifest; pass --full to force a complete rebuild.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			eng, root, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			out.Statusf("📚", "Indexing %s%s...", root, incrementalSuffix(full))
			stats, err := eng.RefreshIndex(cmd.Context(), !full)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			out.Successf("Indexed %d files, %d chunks in %s", stats.TotalFiles, stats.TotalChunks, stats.Duration)
			if stats.Incremental != nil {
				inc := stats.Incremental
				out.Statusf("", "added: %d  changed: %d  deleted: %d  unchanged: %d",
					inc.Added, inc.Changed, inc.Deleted, inc.Unchanged)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Force a full rebuild instead of an incremental one")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}

func incrementalSuffix(full bool) string {
	if full {
		return " (full rebuild)"
	}
	return ""
}
