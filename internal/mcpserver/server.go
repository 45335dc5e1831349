package mcpserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"steward/internal/catalog"
	"steward/internal/store"
	"steward/internal/tracing"
	"steward/pkg/logging"
)

// Server is a stdio MCP server: a single sequential dispatcher loop that
// reads one framed JSON-RPC message, routes it to a registered handler and
// writes the response before reading the next message.
type Server struct {
	name     string
	version  string
	registry *Registry

	reader *FrameReader
	writer *FrameWriter

	initialized bool
}

// NewServer builds a server around the given streams. For production use
// in and out are the process stdin/stdout; tests substitute buffers.
func NewServer(name, version string, registry *Registry, in io.Reader, out io.Writer) *Server {
	return &Server{
		name:     name,
		version:  version,
		registry: registry,
		reader:   NewFrameReader(in),
		writer:   NewFrameWriter(out),
	}
}

// Name returns the server name advertised in serverInfo.
func (s *Server) Name() string { return s.name }

// Run drives the dispatcher loop until EOF on the input stream (graceful
// shutdown, nil return) or a fatal I/O error.
func (s *Server) Run(ctx context.Context) error {
	logging.Info("MCP", "Server %s v%s listening on stdio", s.name, s.version)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		body, err := s.reader.Read()
		if err == io.EOF {
			logging.Info("MCP", "Server %s shutting down on EOF", s.name)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read loop failed: %w", err)
		}

		resp := s.dispatch(ctx, body)
		if resp == nil {
			continue
		}
		out, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("failed to marshal response: %w", err)
		}
		if err := s.writer.Write(out); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
}

// dispatch routes one message. A nil return means no response is written,
// which is the case for every notification.
func (s *Server) dispatch(ctx context.Context, body []byte) *Response {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		logging.Warn("MCP", "Unparseable message: %v", err)
		return newError(nil, CodeParseError, "Parse error", err.Error())
	}

	if msg.Method == "" {
		if msg.IsNotification() {
			return nil
		}
		return newError(msg.ID, CodeInvalidRequest, "Invalid Request", "missing method")
	}

	resp := s.route(ctx, &msg)
	if msg.IsNotification() {
		// Notifications never get a response, error or otherwise.
		return nil
	}
	return resp
}

func (s *Server) route(ctx context.Context, msg *Message) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("MCP", fmt.Errorf("%v", r), "Handler panic in method %s", msg.Method)
			resp = newError(msg.ID, CodeInternalError, fmt.Sprintf("Internal error: %v", r),
				string(debug.Stack()))
		}
	}()

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "notifications/initialized":
		s.initialized = true
		return nil
	case "ping":
		return newResult(msg.ID, struct{}{})
	case "tools/list":
		return newResult(msg.ID, struct {
			Tools []mcp.Tool `json:"tools"`
		}{Tools: s.registry.Tools()})
	case "tools/call":
		return s.handleToolCall(ctx, msg)
	case "resources/list":
		return newResult(msg.ID, struct {
			Resources []mcp.Resource `json:"resources"`
		}{Resources: s.registry.Resources()})
	case "resources/read":
		return s.handleResourceRead(ctx, msg)
	case "prompts/list":
		return newResult(msg.ID, struct {
			Prompts []mcp.Prompt `json:"prompts"`
		}{Prompts: s.registry.Prompts()})
	case "prompts/get":
		return s.handlePromptGet(ctx, msg)
	default:
		return newError(msg.ID, CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func (s *Server) handleInitialize(msg *Message) *Response {
	tools, resources, prompts := s.registry.Counts()
	capabilities := map[string]interface{}{}
	if tools > 0 {
		capabilities["tools"] = map[string]interface{}{}
	}
	if resources > 0 {
		capabilities["resources"] = map[string]interface{}{}
	}
	if prompts > 0 {
		capabilities["prompts"] = map[string]interface{}{}
	}
	return newResult(msg.ID, initializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    capabilities,
		ServerInfo:      serverInfo{Name: s.name, Version: s.version},
	})
}

// toolResult is the tools/call envelope. isError is serialized even when
// false so callers never have to treat absence as success.
type toolResult struct {
	Content []mcp.Content `json:"content"`
	IsError bool          `json:"isError"`
}

func (s *Server) handleToolCall(ctx context.Context, msg *Message) *Response {
	var params toolsCallParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return newError(msg.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	if params.Name == "" {
		return newError(msg.ID, CodeInvalidParams, "Invalid params",
			map[string]string{"field": "name", "reason": "required"})
	}

	entry, ok := s.registry.lookupTool(params.Name)
	if !ok {
		return newError(msg.ID, CodeMethodNotFound,
			fmt.Sprintf("Unknown tool: %s", params.Name), nil)
	}

	text, isErr := s.invokeTool(ctx, params.Name, params.Arguments, entry.handler)
	return newResult(msg.ID, toolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: isErr,
	})
}

// invokeTool runs the handler inside a SERVER-kind trace span. A missing
// tracer is tolerated: tracing.Tracer falls back to a no-op implementation.
func (s *Server) invokeTool(ctx context.Context, name string, args map[string]interface{}, handler ToolHandler) (string, bool) {
	spanCtx, span := tracing.Tracer().Start(ctx, "mcp.tool_call",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("mcp.tool.name", name),
			tracing.ServerAttribute(s.name),
			attribute.String("mcp.tool.args_hash", contentHash(canonicalJSON(args))),
		),
	)
	defer span.End()

	result, err := handler(spanCtx, args)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		logging.Warn("MCP", "Tool %s failed: %v", name, err)
		return serializeResult(map[string]interface{}{
			"error":  err.Error(),
			"status": errorStatus(err),
		}), true
	}

	text := serializeResult(result)
	span.SetAttributes(attribute.String("mcp.tool.result_hash", contentHash([]byte(text))))
	span.SetStatus(codes.Ok, "")
	return text, false
}

func (s *Server) handleResourceRead(ctx context.Context, msg *Message) *Response {
	var params resourcesReadParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return newError(msg.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	if params.URI == "" {
		return newError(msg.ID, CodeInvalidParams, "Invalid params",
			map[string]string{"field": "uri", "reason": "required"})
	}

	entry, captures, ok := s.registry.lookupResource(params.URI)
	if !ok {
		return newError(msg.ID, CodeMethodNotFound,
			fmt.Sprintf("Unknown resource: %s", params.URI), nil)
	}

	text, err := entry.handler(ctx, params.URI, captures)
	if err != nil {
		return newError(msg.ID, CodeInternalError, err.Error(), string(debug.Stack()))
	}

	mimeType := entry.resource.MIMEType
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return newResult(msg.ID, mcp.ReadResourceResult{
		Contents: []mcp.ResourceContents{
			mcp.TextResourceContents{URI: params.URI, MIMEType: mimeType, Text: text},
		},
	})
}

func (s *Server) handlePromptGet(ctx context.Context, msg *Message) *Response {
	var params promptsGetParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return newError(msg.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	entry, ok := s.registry.lookupPrompt(params.Name)
	if !ok {
		return newError(msg.ID, CodeMethodNotFound,
			fmt.Sprintf("Unknown prompt: %s", params.Name), nil)
	}

	value, err := entry.handler(ctx, params.Arguments)
	if err != nil {
		return newError(msg.ID, CodeInternalError, err.Error(), string(debug.Stack()))
	}
	return newResult(msg.ID, promptResultFrom(entry.prompt, value))
}

// promptResultFrom normalizes the three shapes a prompt handler may
// return: a complete result, a bare string, or a structured value.
func promptResultFrom(prompt mcp.Prompt, value interface{}) *mcp.GetPromptResult {
	switch v := value.(type) {
	case *mcp.GetPromptResult:
		return v
	case mcp.GetPromptResult:
		return &v
	case string:
		return &mcp.GetPromptResult{
			Description: prompt.Description,
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: v}},
			},
		}
	default:
		return &mcp.GetPromptResult{
			Description: prompt.Description,
			Messages: []mcp.PromptMessage{
				{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: serializeResult(v)}},
			},
		}
	}
}

// errorStatus classifies a handler error for the envelope payload. The
// domain not-found sentinels map to "not_found"; every other failure is
// "pending", meaning the operation may succeed once its inputs exist.
func errorStatus(err error) string {
	if errors.Is(err, store.ErrProjectNotFound) ||
		errors.Is(err, store.ErrSessionNotFound) ||
		errors.Is(err, catalog.ErrCatalogNotFound) {
		return "not_found"
	}
	return "pending"
}

// serializeResult renders a handler return value for the text envelope.
// Strings pass through; everything else is pretty-printed JSON.
func serializeResult(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// canonicalJSON renders arguments deterministically. encoding/json sorts
// map keys, which is canonical enough for hashing purposes.
func canonicalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(fmt.Sprintf("%v", v))
	}
	return data
}

// contentHash is the first 16 hex characters of the SHA-256 digest.
func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}
