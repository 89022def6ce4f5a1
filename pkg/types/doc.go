// Package types provides shared type definitions for docsync.
//
// This package defines domain types used across the scanner, the
// reconciliation engine, the searcher and the MCP server.
//
// # Core Types
//
// Document is one scanned file after normalization:
//
//	doc := types.NewDocument("guides/intro.md", content, false, len(content))
//	doc.Fingerprint // hex SHA-256 of content
//
// ChangeKind is the outcome of comparing a Document with the stored record
// of the same identity: new, updated, unchanged, or deleted.
//
// # Fingerprints
//
// Fingerprint is a pure function of the normalized content. Two syncs over an
// unchanged tree produce identical fingerprints, which is what lets the
// reconciler skip embedding and store calls for unchanged documents.
//
//	types.Fingerprint("hello") ==
//	    "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
package types
