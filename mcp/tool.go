package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Tool is a named, schema-validated callable operation. Tools are built by
// NewTool or NewToolNoArgs and are immutable once registered.
type Tool struct {
	name               string
	title              string
	description        string
	inputSchema        *SchemaDescriptor
	outputSchema       *SchemaDescriptor
	scopes             []string
	returnErrorAsValue bool

	invoke func(ctx context.Context, raw json.RawMessage, caller Caller, state StateStore) (interface{}, error)
}

// ToolOption configures optional tool attributes at construction time.
type ToolOption func(*Tool)

// WithToolTitle overrides the title derived from the tool name.
func WithToolTitle(title string) ToolOption {
	return func(t *Tool) { t.title = title }
}

// WithToolScopes restricts the tool to callers granted at least one of the
// given scopes. A tool without scopes is public.
func WithToolScopes(scopes ...string) ToolOption {
	return func(t *Tool) { t.scopes = scopes }
}

// WithReturnErrorAsValue makes handler business errors surface as an
// ErrorMessage result instead of a JSON-RPC error. Faults not raised by
// handler logic still surface as internal errors regardless of this flag.
func WithReturnErrorAsValue() ToolOption {
	return func(t *Tool) { t.returnErrorAsValue = true }
}

// NewTool builds a tool from a typed handler. Input and output schemas are
// derived from In and Out once, here; the handler shape is fixed at
// registration and never re-inspected per call.
func NewTool[In, Out any](name, description string, handler func(ctx context.Context, args Arguments[In]) (Out, error), opts ...ToolOption) (Tool, error) {
	if name == "" {
		return Tool{}, fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return Tool{}, fmt.Errorf("tool handler cannot be nil")
	}

	var inProto In
	inputSchema, err := DeriveSchema(inProto, name+"Arguments")
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", name, err)
	}
	var outProto Out
	outputSchema, err := DeriveSchema(outProto, name+"Output")
	if err != nil {
		return Tool{}, fmt.Errorf("tool %s: %w", name, err)
	}

	t := Tool{
		name:         name,
		title:        titleFromName(name),
		description:  description,
		inputSchema:  inputSchema,
		outputSchema: outputSchema,
		invoke: func(ctx context.Context, raw json.RawMessage, caller Caller, state StateStore) (interface{}, error) {
			var inputs In
			if !isEmptyJSON(raw) {
				if err := json.Unmarshal(raw, &inputs); err != nil {
					return nil, &ValidationError{Reason: fmt.Sprintf("cannot decode arguments: %v", err)}
				}
			}
			return handler(ctx, Arguments[In]{Inputs: inputs, Caller: caller, state: state})
		},
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t, nil
}

// NewToolNoArgs builds a tool whose handler takes no invocation context. Its
// input schema is the no-arguments sentinel, accepting only an empty payload.
func NewToolNoArgs[Out any](name, description string, handler func(ctx context.Context) (Out, error), opts ...ToolOption) (Tool, error) {
	if handler == nil {
		return Tool{}, fmt.Errorf("tool handler cannot be nil")
	}
	wrapped := func(ctx context.Context, _ Arguments[NoArguments]) (Out, error) {
		return handler(ctx)
	}
	return NewTool(name, description, wrapped, opts...)
}

// Name returns the unique tool name.
func (t Tool) Name() string { return t.name }

// Title returns the human-readable title.
func (t Tool) Title() string { return t.title }

// Description returns the tool description.
func (t Tool) Description() string { return t.description }

// Scopes returns the scopes required to see and call the tool.
func (t Tool) Scopes() []string { return t.scopes }

// InputSchema returns the derived input schema.
func (t Tool) InputSchema() *SchemaDescriptor { return t.inputSchema }

// OutputSchema returns the derived output schema.
func (t Tool) OutputSchema() *SchemaDescriptor { return t.outputSchema }

// ReturnsErrorAsValue reports whether business errors become result values.
func (t Tool) ReturnsErrorAsValue() bool { return t.returnErrorAsValue }

func (t Tool) descriptor() ToolDescriptor {
	return ToolDescriptor{
		Name:         t.name,
		Title:        t.title,
		Description:  t.description,
		InputSchema:  t.inputSchema.JSONSchema(),
		OutputSchema: t.outputSchema.JSONSchema(),
	}
}

// titleFromName turns snake_case operation names into word-capitalized
// titles, e.g. "get_weather" becomes "Get Weather".
func titleFromName(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
