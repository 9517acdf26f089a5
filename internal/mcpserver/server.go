// Package mcpserver exposes engine.Engine's operations as MCP tools over
// github.com/modelcontextprotocol/go-sdk, the way an AI coding assistant
// calls into ctxd: mcp.NewServer/mcp.AddTool registration, typed
// input/output structs, and stdio-only Serve dispatch over engine.Engine.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codectx/ctxd/internal/engine"
	"github.com/codectx/ctxd/internal/retrieval"
)

// Server is the MCP server for ctxd. It bridges AI coding assistants with
// the hybrid search engine.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer builds an MCP server around eng. name/version populate the
// mcp.Implementation the client sees during initialize.
func NewServer(eng *engine.Engine, name, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: eng, logger: logger}
	s.mcp = mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Hybrid code search over the project's index: combines lexical (BM25/fuzzy) and semantic (vector) retrieval, reranked and quality-assessed. Prefer this over grep for anything beyond an exact literal match.",
	}, s.handleSearch)
	s.logger.Debug("registered tool", slog.String("name", "search"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "find_references",
		Description: "Find whole-word occurrences of a symbol across the indexed codebase. Use this to answer \"where is X used\" questions.",
	}, s.handleFindReferences)
	s.logger.Debug("registered tool", slog.String("name", "find_references"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "detect_cycles",
		Description: "Detect import cycles in the project's dependency graph, optionally scoped to a path prefix.",
	}, s.handleDetectCycles)
	s.logger.Debug("registered tool", slog.String("name", "detect_cycles"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report the active index build's identity and size. Call this before searching if results seem stale.",
	}, s.handleIndexStatus)
	s.logger.Debug("registered tool", slog.String("name", "index_status"))

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "refresh_index",
		Description: "Rebuild the index, incrementally by default. Use after making changes the index hasn't picked up yet.",
	}, s.handleRefreshIndex)
	s.logger.Debug("registered tool", slog.String("name", "refresh_index"))

	s.logger.Info("mcp tools registered", slog.Int("count", 5))
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, invalidParams("query is required")
	}

	filters := retrieval.Filters{
		Framework:     input.Framework,
		Language:      input.Language,
		ComponentType: input.ComponentType,
		Layer:         input.Layer,
		Tags:          input.Tags,
	}

	opts := retrieval.DefaultOptions()
	opts.Profile = retrieval.Profile(input.Profile)
	opts.EnableReranker = input.EnableReranker
	if input.UseSemanticSearch != nil {
		opts.UseSemanticSearch = *input.UseSemanticSearch
	}
	if input.UseLexicalSearch != nil {
		opts.UseLexicalSearch = *input.UseLexicalSearch
	}
	if input.EnableQueryExpansion != nil {
		opts.EnableQueryExpansion = *input.EnableQueryExpansion
	}
	if input.EnableLowConfidenceRescue != nil {
		opts.EnableLowConfidenceRescue = *input.EnableLowConfidenceRescue
	}

	outcome, err := s.engine.Search(ctx, input.Query, input.Limit, filters, opts)
	if err != nil {
		return nil, SearchOutput{}, mapError(err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, 0, len(outcome.Results)),
		Status:  string(outcome.Assessment.Status),
		Rescued: outcome.Rescued,
	}
	for _, r := range outcome.Results {
		output.Results = append(output.Results, toSearchResultOutput(r))
	}
	return nil, output, nil
}

func toSearchResultOutput(r retrieval.Result) SearchResultOutput {
	out := SearchResultOutput{
		Snippet:    r.Snippet,
		Score:      r.Score,
		Trend:      string(r.Trend),
		Centrality: r.Centrality,
	}
	if r.Chunk != nil {
		out.Path = r.Chunk.RelPath
		out.StartLine = r.Chunk.StartLine
		out.EndLine = r.Chunk.EndLine
		out.Language = r.Chunk.Language
		out.Symbol = r.Chunk.SymbolName()
		out.ComponentType = r.Chunk.ComponentType
		out.Tags = r.Chunk.Tags
	}
	return out
}

func (s *Server) handleFindReferences(ctx context.Context, _ *mcp.CallToolRequest, input FindReferencesInput) (
	*mcp.CallToolResult, FindReferencesOutput, error,
) {
	if input.Symbol == "" {
		return nil, FindReferencesOutput{}, invalidParams("symbol is required")
	}

	result, err := s.engine.FindReferences(ctx, input.Symbol, input.Limit)
	if err != nil {
		return nil, FindReferencesOutput{}, mapError(err)
	}

	usages := make([]UsageOutput, 0, len(result.Usages))
	for _, u := range result.Usages {
		usages = append(usages, UsageOutput{Path: u.Path, Line: u.Line, Preview: u.Preview})
	}

	return nil, FindReferencesOutput{
		Symbol:     result.Symbol,
		Usages:     usages,
		UsageCount: result.UsageCount,
		Confidence: result.Confidence,
		IsComplete: result.IsComplete,
	}, nil
}

func (s *Server) handleDetectCycles(ctx context.Context, _ *mcp.CallToolRequest, input DetectCyclesInput) (
	*mcp.CallToolResult, DetectCyclesOutput, error,
) {
	cycles, err := s.engine.DetectCycles(ctx, input.Scope)
	if err != nil {
		return nil, DetectCyclesOutput{}, mapError(err)
	}

	out := make([]CycleOutput, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, CycleOutput{Nodes: c.Nodes, Severity: string(c.Severity)})
	}
	return nil, DetectCyclesOutput{Cycles: out}, nil
}

func (s *Server) handleIndexStatus(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult, IndexStatusOutput, error,
) {
	status, err := s.engine.GetIndexingStatus(ctx)
	if err != nil {
		return nil, IndexStatusOutput{}, mapError(err)
	}
	return nil, IndexStatusOutput{
		BuildID:            status.BuildID,
		ToolVersion:        status.ToolVersion,
		TotalChunks:        status.TotalChunks,
		FormatVersion:      status.FormatVersion,
		EmbeddingDims:      status.Info.EmbeddingDims,
		KeywordStoreBytes:  status.Info.KeywordStoreBytes,
		VectorStoreBytes:   status.Info.VectorStoreBytes,
		EmbedderCompatible: status.Info.EmbedderCompatible,
	}, nil
}

func (s *Server) handleRefreshIndex(ctx context.Context, _ *mcp.CallToolRequest, input RefreshIndexInput) (
	*mcp.CallToolResult, RefreshIndexOutput, error,
) {
	stats, err := s.engine.RefreshIndex(ctx, input.IncrementalOnly)
	if err != nil {
		return nil, RefreshIndexOutput{}, mapError(err)
	}
	return nil, RefreshIndexOutput{
		FilesScanned:  stats.TotalFiles,
		ChunksWritten: stats.TotalChunks,
		DurationMs:    int(stats.Duration.Milliseconds()),
	}, nil
}

// Serve starts the server over stdio. ctxd runs as a subprocess an editor
// spawns, not a long-lived network service, so no other transport is
// offered.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("starting mcp server", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp server stopped with error", slog.String("error", err.Error()))
		return fmt.Errorf("mcp server: %w", err)
	}
	s.logger.Info("mcp server stopped gracefully")
	return nil
}
