package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codectx/ctxd/internal/config"
	"github.com/codectx/ctxd/internal/indexstore"
	"github.com/codectx/ctxd/internal/obs"
	"github.com/codectx/ctxd/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ctxd CLI.
func NewRootCmd() *cobra.Command {
	var offline bool
	var reindex bool

	cmd := &cobra.Command{
		Use:   "ctxd",
		Short: "Local-first hybrid code retrieval engine for AI coding assistants",
		Long: `ctxd indexes a codebase and serves hybrid search (BM25 + semantic),
reference lookup, and import-cycle detection to AI coding assistants over MCP.

It runs entirely locally with zero configuration required.

Just run 'ctxd' in your project directory to get started.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runSmartDefault(cmd.Context(), offline, reindex)
		},
	}

	cmd.SetVersionTemplate("ctxd version {{.Version}}\n")

	cmd.Flags().BoolVar(&offline, "offline", false, "Use static embeddings (skip model download)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "Force a full reindex even if an index exists")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.codebase-context/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newReferencesCmd())
	cmd.AddCommand(newCyclesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := obs.Setup(obs.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", obs.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runSmartDefault implements the "just works" default flow: find the
// project root, index it if needed, then hand off to the MCP server.
// MCP's stdio transport requires stdout to carry nothing but JSON-RPC, so
// nothing here writes to stdout; use `ctxd status` for diagnostics.
func runSmartDefault(ctx context.Context, offline, reindex bool) error {
	root, err := config.FindProjectRoot(currentDir())
	if err != nil {
		root, _ = os.Getwd()
	}

	contextDir := config.ContextDir(root)
	manifestPath := filepath.Join(contextDir, indexstore.ManifestFileName)
	needsIndex := reindex || !fileExists(manifestPath)

	eng, _, err := buildEngine(root, offline, slog.Default())
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	if needsIndex {
		slog.Info("index not found, building", slog.String("root", root))
		if _, err := eng.RefreshIndex(ctx, false); err != nil {
			slog.Error("indexing failed", slog.String("error", err.Error()))
			return fmt.Errorf("indexing failed: %w", err)
		}
		slog.Info("index complete")
	} else {
		slog.Debug("index found", slog.String("path", manifestPath))
	}

	return runServe(ctx, eng, root)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
