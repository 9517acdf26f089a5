// Package config loads ctxd's layered configuration: built-in defaults,
// overridden by a project file (.codebase-context.yaml), overridden by
// CTXD_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete ctxd configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// PathsConfig configures which files are scanned for indexing.
type PathsConfig struct {
	Include []string `yaml:"include" json:"include"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// SearchConfig configures hybrid retrieval parameters.
//
// Weights and the RRF constant are configurable via, in increasing
// precedence:
//  1. built-in defaults
//  2. project config (.codebase-context.yaml)
//  3. environment variables (CTXD_BM25_WEIGHT, CTXD_SEMANTIC_WEIGHT, CTXD_RRF_CONSTANT)
type SearchConfig struct {
	// BM25Weight is the default lexical-channel weight (must sum to 1.0 with
	// SemanticWeight). Caller-supplied weights in a search request override
	// this, as do the Query Classifier's intent-specific defaults.
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`
	// SemanticWeight is the default semantic-channel weight.
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// RRFConstant is the RRF smoothing parameter k. Defaults to 60; the
	// project file and CTXD_RRF_CONSTANT override it.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`

	MaxResults         int  `yaml:"max_results" json:"max_results"`
	EnableReranker     bool `yaml:"enable_reranker" json:"enable_reranker"`
	EnableExpansion    bool `yaml:"enable_query_expansion" json:"enable_query_expansion"`
	EnableRescue       bool `yaml:"enable_low_confidence_rescue" json:"enable_low_confidence_rescue"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
}

// ServerConfig configures the MCP-facing server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/.codebase-context/**",
}

// Default returns ctxd's built-in configuration defaults.
func Default() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{},
			Exclude: defaultExcludePatterns,
		},
		Search: SearchConfig{
			BM25Weight:      0.5,
			SemanticWeight:  0.5,
			RRFConstant:     60,
			MaxResults:      5,
			EnableReranker:  false,
			EnableExpansion: true,
			EnableRescue:    true,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "deterministic",
			Model:      "ctxd-static-256",
			Dimensions: 256,
			BatchSize:  32,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// Load reads the project config file (if present) and overlays environment
// variable overrides onto the built-in defaults.
func Load(projectRoot string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(projectRoot, ".codebase-context.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := envFloat("CTXD_BM25_WEIGHT"); ok {
		cfg.Search.BM25Weight = v
	}
	if v, ok := envFloat("CTXD_SEMANTIC_WEIGHT"); ok {
		cfg.Search.SemanticWeight = v
	}
	if v, ok := envInt("CTXD_RRF_CONSTANT"); ok {
		cfg.Search.RRFConstant = v
	}
	if v, ok := os.LookupEnv("CTXD_EMBEDDING_PROVIDER"); ok && v != "" {
		cfg.Embeddings.Provider = v
	}
}

func envFloat(key string) (float64, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate checks invariants that the rest of ctxd assumes hold.
func (c *Config) Validate() error {
	if c.Search.RRFConstant <= 0 {
		return fmt.Errorf("search.rrf_constant must be positive, got %d", c.Search.RRFConstant)
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	sum := c.Search.BM25Weight + c.Search.SemanticWeight
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("search.bm25_weight + search.semantic_weight must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// ContextDir returns the root's `.codebase-context` directory.
func ContextDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".codebase-context")
}

// FindProjectRoot walks up from startDir looking for a `.git` directory or a
// `.codebase-context.yaml` file, returning the first directory that has
// either. If neither is found before reaching the filesystem root, it
// returns startDir itself.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path: %w", err)
	}

	dir := absDir
	for {
		if dirExists(filepath.Join(dir, ".git")) {
			return dir, nil
		}
		if fileExists(filepath.Join(dir, ".codebase-context.yaml")) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return absDir, nil
		}
		dir = parent
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// String renders the config as indented YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config marshal error: %v>", err)
	}
	return strings.TrimRight(string(data), "\n")
}
