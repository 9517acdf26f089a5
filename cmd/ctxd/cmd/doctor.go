package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
)

func newDoctorCmd() *cobra.Command {
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Cross-check index artifacts for orphaned and dangling entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, root, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			result, err := eng.Doctor(cmd.Context())
			if err != nil {
				return fmt.Errorf("doctor: %w", err)
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			out := output.New(cmd.OutOrStdout())
			out.Status("📦", fmt.Sprintf("Project root: %s", root))
			out.Status("📄", fmt.Sprintf("Chunks checked: %d", result.CheckedChunks))
			out.Status("🧭", fmt.Sprintf("Vectors checked: %d", result.CheckedVectors))
			if result.Clean() {
				out.Success("Index is consistent")
				return nil
			}
			out.Warning(fmt.Sprintf("%d inconsistencies found:", len(result.Issues)))
			for _, issue := range result.Issues {
				out.Status("  •", fmt.Sprintf("[%s] %s: %s", issue.Kind, issue.Subject, issue.Details))
			}
			out.Status("💡", "Run 'ctxd index --full' to rebuild the index")
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}
