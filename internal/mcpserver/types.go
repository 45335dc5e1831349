package mcpserver

import "encoding/json"

// ProtocolVersion is the MCP protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Message is an inbound JSON-RPC message. ID is kept raw so that string,
// number and explicit-null ids round-trip unchanged; a nil ID means the id
// field was absent and the message is a notification.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message carries no id. Notifications
// never receive a response, including error responses.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0
}

// Response is an outbound JSON-RPC response. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// newResult builds a success response preserving the request id.
func newResult(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

// newError builds an error response preserving the request id.
func newError(id json.RawMessage, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      normalizeID(id),
		Error:   &RPCError{Code: code, Message: message, Data: data},
	}
}

// normalizeID maps an absent id to explicit null in responses. The only
// path that produces a response for an id-less message is a protocol-level
// error for an unparseable request, where JSON-RPC prescribes id null.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// initializeResult is the body returned by the initialize method.
type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// toolsCallParams is the body of a tools/call request.
type toolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// resourcesReadParams is the body of a resources/read request.
type resourcesReadParams struct {
	URI string `json:"uri"`
}

// promptsGetParams is the body of a prompts/get request.
type promptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}
