package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/output"
)

func newCyclesCmd() *cobra.Command {
	var scope string
	var offline bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "Detect import cycles in the project's dependency graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}

			cycles, err := eng.DetectCycles(cmd.Context(), scope)
			if err != nil {
				return fmt.Errorf("cycles: %w", err)
			}

			out := output.New(cmd.OutOrStdout())
			if len(cycles) == 0 {
				out.Success("No import cycles found")
				return nil
			}

			out.Statusf("🔁", "Found %d import cycle(s):", len(cycles))
			for _, c := range cycles {
				out.Statusf("", "[%s] %s", c.Severity, joinArrow(c.Nodes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "", "Restrict detection to a path prefix")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}

func joinArrow(nodes []string) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}
