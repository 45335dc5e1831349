// Package mcpserver implements the MCP transport and dispatch core: a
// JSON-RPC 2.0 server speaking over stdin/stdout with LSP-style
// Content-Length framing.
//
// Each server process runs a single sequential dispatcher loop. One framed
// message is read, routed to a registered tool, resource or prompt
// handler, and its response written before the next message is read, so
// responses are emitted in strict request order. Notifications (messages
// without an id) never produce a response.
//
// Handlers are plain functions registered explicitly on a Registry at
// server construction. Tool invocations are wrapped in a SERVER-kind
// trace span named "mcp.tool_call"; when no tracer is installed the span
// operations are no-ops.
//
// stdout carries only framed protocol messages. All diagnostics go to
// stderr via pkg/logging.
package mcpserver
