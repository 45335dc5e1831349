// Package logging provides structured logging for steward built on the
// standard slog package.
//
// All log output is written to the writer passed to Init, which for MCP
// server processes must be stderr: stdout carries framed JSON-RPC messages
// and any stray bytes on it corrupt the protocol.
//
// Log entries are tagged with a subsystem identifier for filtering:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("Assessor", "Assessed %d requirements", n)
//	logging.Error("Store", err, "Failed to open database at %s", path)
//
// Common subsystems: Bootstrap, MCP, Store, Catalog, Assessor, Report,
// Clarify, RTM, SBOM, Audit.
package logging
