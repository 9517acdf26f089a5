package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
)

func newStatusCmd() *cobra.Command {
	var format string
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current index's identity and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, root, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			status, err := eng.GetIndexingStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			out := output.New(cmd.OutOrStdout())
			out.Status("📦", fmt.Sprintf("Project root: %s", root))
			out.Status("🆔", fmt.Sprintf("Build ID: %s", status.BuildID))
			out.Status("🔧", fmt.Sprintf("Tool version: %s", status.ToolVersion))
			out.Status("📄", fmt.Sprintf("Chunks: %d", status.TotalChunks))
			out.Status("🗂️", fmt.Sprintf("Format version: %d", status.FormatVersion))
			out.Status("📐", fmt.Sprintf("Embedding dims: %d", status.Info.EmbeddingDims))
			out.Status("💾", fmt.Sprintf("Keyword store: %s", formatBytes(status.Info.KeywordStoreBytes)))
			out.Status("💾", fmt.Sprintf("Vector store: %s", formatBytes(status.Info.VectorStoreBytes)))
			if !status.Info.EmbedderCompatible {
				out.Warning("Configured embedder dimension differs from the index; rebuild to restore semantic search")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
