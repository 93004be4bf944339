package browser

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// ToolResult is the outcome of one tool invocation
type ToolResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolInfo describes a registered tool
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// Registry maps tool names to tools
type Registry struct {
	manager *Manager
	tools   map[string]Tool
}

// NewRegistry creates a registry with every browser tool bound to manager
func NewRegistry(manager *Manager) *Registry {
	r := &Registry{manager: manager, tools: make(map[string]Tool)}

	base := sessionTool{manager: manager}
	for _, t := range []Tool{
		&StartSessionTool{base},
		&CloseSessionTool{base},
		&NavigateTool{base},
		&ClickTool{base},
		&HoverTool{base},
		&ScreenshotTool{base},
		&ConsoleLogsTool{base},
		&AssertNetworkRequestTool{base},
	} {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool
func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Manager returns the session manager behind the tools
func (r *Registry) Manager() *Manager {
	return r.manager
}

// List returns the registered tools sorted by name
func (r *Registry) List() []ToolInfo {
	infos := make([]ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		infos = append(infos, ToolInfo{Name: t.Name(), Description: t.Description(), Schema: t.Schema()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Invoke runs a tool. Tool failures, including panics, are reported in the
// result; the error is only set for an unknown tool name.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result *ToolResult, err error) {
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("tool", name).Interface("panic", rec).Msg("browser tool panicked")
			result, err = &ToolResult{Error: fmt.Sprintf("tool %s failed unexpectedly: %v", name, rec)}, nil
		}
	}()

	data, execErr := tool.Execute(ctx, args)
	if execErr != nil {
		log.Debug().Err(execErr).Str("tool", name).Msg("browser tool failed")
		return &ToolResult{Error: execErr.Error()}, nil
	}
	return &ToolResult{Success: true, Data: data}, nil
}
