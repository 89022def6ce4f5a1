package mcp

import (
	"context"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/docsync/internal/reconcile"
	"github.com/dshills/docsync/internal/searcher"
	"github.com/dshills/docsync/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsync"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	store      storage.Store
	reconciler *reconcile.Reconciler
	searcher   *searcher.Searcher

	// syncLock rejects a sync_documents call while another is running
	syncLock reconcile.RunLock

	mu         sync.RWMutex
	lastReport *reconcile.Report
}

// NewServer creates a new MCP server over an opened store.
// The reconciler and searcher must share the store.
func NewServer(rec *reconcile.Reconciler, srch *searcher.Searcher, version string) *Server {
	s := &Server{
		mcp:        server.NewMCPServer(ServerName, version),
		store:      rec.Store(),
		reconciler: rec,
		searcher:   srch,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP protocol over stdin/stdout until ctx is canceled or
// the input closes
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, stdin, stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(syncDocumentsTool(), s.handleSyncDocuments)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

// LastReport returns the report of the most recent successful sync
func (s *Server) LastReport() *reconcile.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

func (s *Server) setLastReport(r *reconcile.Report) {
	s.mu.Lock()
	s.lastReport = r
	s.mu.Unlock()
}
