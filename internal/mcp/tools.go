package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/internal/reconcile"
	"github.com/dshills/docsync/internal/scanner"
	"github.com/dshills/docsync/internal/searcher"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeSourceNotFound  = -32001 // Source path missing or not a directory
	ErrorCodeSyncInProgress  = -32002 // Another sync is already running
	ErrorCodeProviderFailure = -32003 // Embedding provider aborted the sync
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// handleSyncDocuments handles the sync_documents tool invocation
func (s *Server) handleSyncDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok && request.Params.Arguments != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	source := getStringDefault(args, "path", s.reconciler.Source())
	if source == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing and no default source configured",
		})
	}
	if !filepath.IsAbs(source) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	if !s.syncLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeSyncInProgress, "sync already in progress", map[string]interface{}{
			"path": source,
		})
	}
	defer s.syncLock.Release()

	report, err := s.reconciler.RunSource(ctx, source)
	// Cached rankings predate the new store contents; an aborted run may
	// still have committed some mutations
	s.searcher.InvalidateCache()
	if err != nil {
		logger.FromContext(ctx).Error("sync_documents failed", "source", source, "error", err)
		return nil, syncError(err)
	}
	s.setLastReport(report)

	data, err := json.Marshal(report)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to encode report", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	minScore := getFloatDefault(args, "min_relevance", 0)
	if minScore < 0 || minScore > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_relevance must be between 0 and 1", map[string]interface{}{
			"param": "min_relevance",
			"value": minScore,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		MinScore: minScore,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"rank":            r.Rank,
			"identity":        r.Identity,
			"relevance_score": r.RelevanceScore,
			"fingerprint":     r.Fingerprint,
			"preview":         r.Preview,
		})
	}

	response := map[string]interface{}{
		"results":       results,
		"total_records": resp.TotalRecords,
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count records", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"store":   s.store.Describe(),
		"source":  s.reconciler.Source(),
		"records": count,
		"syncing": s.syncLock.Held(),
	}

	if last := s.LastReport(); last != nil {
		response["last_sync"] = map[string]interface{}{
			"run_id":      last.RunID,
			"source":      last.Source,
			"status":      last.Status,
			"new":         last.New,
			"updated":     last.Updated,
			"unchanged":   last.Unchanged,
			"deleted":     last.Deleted,
			"failed":      last.Failed,
			"duration_ms": last.Duration.Milliseconds(),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// syncError maps a reconciliation failure to an MCP error
func syncError(err error) error {
	data := map[string]interface{}{"error": err.Error()}

	var provErr *reconcile.ProviderError
	switch {
	case errors.Is(err, scanner.ErrSourceNotFound), errors.Is(err, scanner.ErrNotDirectory):
		return newMCPError(ErrorCodeSourceNotFound, "source directory not found", data)
	case errors.Is(err, scanner.ErrBadPattern):
		return newMCPError(ErrorCodeInvalidParams, "invalid scan pattern", data)
	case errors.As(err, &provErr):
		return newMCPError(ErrorCodeProviderFailure, "embedding provider failed", data)
	default:
		return newMCPError(ErrorCodeInternalError, "sync failed", data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a numeric parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation errors
var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
)
