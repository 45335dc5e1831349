package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler executes one tool invocation. Structured return values
// (maps, slices, structs) are JSON-pretty-serialized into the result
// envelope; plain strings pass through unchanged.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ResourceHandler serves one resources/read call. params holds the named
// captures when the registered URI contained {placeholder} segments.
type ResourceHandler func(ctx context.Context, uri string, params map[string]string) (string, error)

// PromptHandler serves one prompts/get call. It may return a full
// *mcp.GetPromptResult, a bare string (wrapped as a single user text
// message) or any structured value (JSON-serialized into one user text
// message).
type PromptHandler func(ctx context.Context, args map[string]string) (interface{}, error)

type toolEntry struct {
	tool    mcp.Tool
	handler ToolHandler
}

type resourceEntry struct {
	resource mcp.Resource
	template *uriTemplate
	handler  ResourceHandler
}

type promptEntry struct {
	prompt  mcp.Prompt
	handler PromptHandler
}

// Registry holds the tool, resource and prompt maps owned by one MCP
// server process. Registration is explicit at server construction; there
// is no reflection-based discovery.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]toolEntry
	resources map[string]resourceEntry
	prompts   map[string]promptEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]toolEntry),
		resources: make(map[string]resourceEntry),
		prompts:   make(map[string]promptEntry),
	}
}

// RegisterTool adds a tool. Re-registering a name replaces the previous
// entry.
func (r *Registry) RegisterTool(tool mcp.Tool, handler ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = toolEntry{tool: tool, handler: handler}
}

// RegisterResource adds a resource. URIs may contain single-segment
// {name} placeholders; malformed templates are rejected here rather than
// at read time.
func (r *Registry) RegisterResource(resource mcp.Resource, handler ResourceHandler) error {
	tmpl, err := compileURITemplate(resource.URI)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[resource.URI] = resourceEntry{resource: resource, template: tmpl, handler: handler}
	return nil
}

// RegisterPrompt adds a prompt.
func (r *Registry) RegisterPrompt(prompt mcp.Prompt, handler PromptHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[prompt.Name] = promptEntry{prompt: prompt, handler: handler}
}

// Counts returns the number of registered tools, resources and prompts.
// Capability advertisement includes only the non-empty categories.
func (r *Registry) Counts() (tools, resources, prompts int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools), len(r.resources), len(r.prompts)
}

// Tools returns the registered tools sorted by name for deterministic
// tools/list output.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Resources returns the registered resources sorted by URI.
func (r *Registry) Resources() []mcp.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(r.resources))
	for _, e := range r.resources {
		out = append(out, e.resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Prompts returns the registered prompts sorted by name.
func (r *Registry) Prompts() []mcp.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Prompt, 0, len(r.prompts))
	for _, e := range r.prompts {
		out = append(out, e.prompt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// lookupTool returns the handler for a tool name.
func (r *Registry) lookupTool(name string) (toolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e, ok
}

// lookupResource resolves a concrete URI: exact match first, then the
// registered templates in sorted URI order so matches are deterministic.
func (r *Registry) lookupResource(uri string) (resourceEntry, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.resources[uri]; ok && e.template == nil {
		return e, nil, true
	}

	keys := make([]string, 0, len(r.resources))
	for k := range r.resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := r.resources[k]
		if e.template == nil {
			continue
		}
		if params, ok := e.template.match(uri); ok {
			return e, params, true
		}
	}
	return resourceEntry{}, nil, false
}

// lookupPrompt returns the handler for a prompt name.
func (r *Registry) lookupPrompt(name string) (promptEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.prompts[name]
	return e, ok
}

// MustRegisterResource registers a resource and panics on a malformed
// template. Registration happens at server construction where a bad
// template is a programming error.
func (r *Registry) MustRegisterResource(resource mcp.Resource, handler ResourceHandler) {
	if err := r.RegisterResource(resource, handler); err != nil {
		panic(fmt.Sprintf("invalid resource registration: %v", err))
	}
}
