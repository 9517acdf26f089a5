// Package cmd provides the CLI commands for ctxd.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/codectx/ctxd/internal/chunker"
	"github.com/codectx/ctxd/internal/config"
	"github.com/codectx/ctxd/internal/embedadapter"
	"github.com/codectx/ctxd/internal/engine"
	"github.com/codectx/ctxd/pkg/version"
)

// newEmbedder builds the embedder configured for cfg, wrapped in the
// resilience breaker every real provider runs behind. "deterministic" is
// the only provider ctxd ships out of the box; anything else is rejected
// up front rather than silently falling back.
func newEmbedder(cfg *config.Config) (embedadapter.Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "deterministic", "":
		static := embedadapter.NewStaticEmbedder(cfg.Embeddings.Dimensions)
		return embedadapter.NewResilient(static, "embeddings"), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}

// buildEngine resolves the project root, loads its config, and wires an
// engine.Engine the way cmd/ctxd's commands need it. logger may be nil.
// offline forces the deterministic embedder regardless of config, matching
// ctxd's only embeddings provider today.
func buildEngine(startDir string, offline bool, logger *slog.Logger) (*engine.Engine, string, error) {
	root, err := config.FindProjectRoot(startDir)
	if err != nil {
		return nil, "", fmt.Errorf("resolve project root: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if offline {
		cfg.Embeddings.Provider = "deterministic"
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, "", err
	}

	eng := engine.New(root, cfg, chunker.NewTreeSitterChunker(), embedder, nil, logger, version.Version)
	return eng, root, nil
}

// currentDir returns the working directory, falling back to "." so
// commands can still attempt FindProjectRoot from cwd.
func currentDir() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}
