package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/engine"
	"github.com/codectx/ctxd/internal/mcpserver"
	"github.com/codectx/ctxd/internal/watcherapi"
	"github.com/codectx/ctxd/pkg/version"
)

func newServeCmd() *cobra.Command {
	var transport string
	var offline bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		Long: `serve starts ctxd's MCP server, exposing search, find_references,
detect_cycles, index_status, and refresh_index as tools an AI coding
assistant calls into.

Only the stdio transport is supported today.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, root, err := buildEngine(currentDir(), offline, slog.Default())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), eng, root)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport to serve over (only \"stdio\" is supported)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")

	return cmd
}

// runServe starts the MCP server and, concurrently, a best-effort file
// watcher that triggers incremental refreshes. The watcher's startup must
// never block the MCP handshake: stdio clients expect a response quickly,
// and a large tree's initial walk can take seconds, so it runs in its own
// goroutine rather than before srv.Serve.
func runServe(ctx context.Context, eng *engine.Engine, root string) error {
	srv := mcpserver.NewServer(eng, "ctxd", version.Version, slog.Default())

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()

	go func() {
		w := watcherapi.New(watcherapi.Options{}.WithDefaults())
		if err := watcherapi.Drive(watchCtx, w, root, eng, slog.Default()); err != nil {
			slog.Debug("file watcher stopped", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
