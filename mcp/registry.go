package mcp

// Registry holds the immutable set of registered tools and prompts. Entries
// keep their registration order: listing is stable and deterministic, not
// sorted. Name uniqueness is enforced at construction.
type Registry struct {
	tools       []Tool
	prompts     []Prompt
	toolIndex   map[string]int
	promptIndex map[string]int
}

// NewRegistry builds a registry from the given tools and prompts. It returns
// a DuplicateNameError when two tools or two prompts share a name.
func NewRegistry(tools []Tool, prompts []Prompt) (*Registry, error) {
	r := &Registry{
		toolIndex:   make(map[string]int, len(tools)),
		promptIndex: make(map[string]int, len(prompts)),
	}
	for _, t := range tools {
		if _, exists := r.toolIndex[t.name]; exists {
			return nil, &DuplicateNameError{Kind: "tool", Name: t.name}
		}
		r.toolIndex[t.name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	for _, p := range prompts {
		if _, exists := r.promptIndex[p.name]; exists {
			return nil, &DuplicateNameError{Kind: "prompt", Name: p.name}
		}
		r.promptIndex[p.name] = len(r.prompts)
		r.prompts = append(r.prompts, p)
	}
	return r, nil
}

// Tool resolves a tool by name.
func (r *Registry) Tool(name string) (Tool, bool) {
	i, ok := r.toolIndex[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Prompt resolves a prompt by name.
func (r *Registry) Prompt(name string) (Prompt, bool) {
	i, ok := r.promptIndex[name]
	if !ok {
		return Prompt{}, false
	}
	return r.prompts[i], true
}

// HasTools reports whether any tool is registered.
func (r *Registry) HasTools() bool { return len(r.tools) > 0 }

// HasPrompts reports whether any prompt is registered.
func (r *Registry) HasPrompts() bool { return len(r.prompts) > 0 }

// ListTools returns the tools visible to the caller, in registration order.
// Entries whose scopes the caller does not satisfy are omitted entirely.
func (r *Registry) ListTools(caller Caller) []Tool {
	visible := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		if authorized(t.scopes, caller.Scopes) {
			visible = append(visible, t)
		}
	}
	return visible
}

// ListPrompts returns the prompts visible to the caller, in registration
// order.
func (r *Registry) ListPrompts(caller Caller) []Prompt {
	visible := make([]Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		if authorized(p.scopes, caller.Scopes) {
			visible = append(visible, p)
		}
	}
	return visible
}

// authorized decides visibility and invocability. An operation without
// required scopes is public. Otherwise the caller must hold at least one of
// the required scopes: OR semantics, not AND.
func authorized(required, granted []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, req := range required {
		for _, got := range granted {
			if req == got {
				return true
			}
		}
	}
	return false
}
