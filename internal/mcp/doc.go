// Package mcp exposes docsync over the Model Context Protocol (MCP).
//
// The server registers three tools:
//   - sync_documents: reconcile the store with a document directory
//   - search_documents: rank stored documents against a natural language query
//   - get_status: report the store location, record count and last sync
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. The server reads requests from stdin and
// writes responses to stdout; all logging goes to stderr.
//
//	docsync serve --source /srv/docs
//
// # Tool: sync_documents
//
//	Request:
//	{
//	  "name": "sync_documents",
//	  "arguments": {"path": "/srv/docs"}
//	}
//
//	Response (the sync report):
//	{
//	  "run_id": "8d3c...",
//	  "before": 10, "after": 11,
//	  "new": 2, "updated": 1, "unchanged": 7, "deleted": 1, "failed": 0,
//	  "truncated": [],
//	  "status": "ok",
//	  "duration_ms": 412
//	}
//
// Only one sync runs at a time per server; a concurrent call fails with
// -32002 instead of queueing.
//
// # Tool: search_documents
//
//	Request:
//	{
//	  "name": "search_documents",
//	  "arguments": {"query": "rotating credentials", "limit": 5}
//	}
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params
//   - -32603: Internal error (store failures)
//   - -32001: Source directory not found
//   - -32002: Sync in progress
//   - -32003: Embedding provider failure
//   - -32004: Empty query
package mcp
