package mcp

import (
	"context"
	"encoding/json"
	"fmt"
)

// Prompt is a named, schema-validated template producing an ordered sequence
// of conversation messages. Prompts are built by NewPrompt or NewPromptNoArgs
// and are immutable once registered.
type Prompt struct {
	name            string
	title           string
	description     string
	argumentsSchema *SchemaDescriptor
	scopes          []string

	invoke func(ctx context.Context, raw json.RawMessage, caller Caller, state StateStore) ([]PromptMessage, error)
}

// PromptOption configures optional prompt attributes at construction time.
type PromptOption func(*Prompt)

// WithPromptTitle overrides the title derived from the prompt name.
func WithPromptTitle(title string) PromptOption {
	return func(p *Prompt) { p.title = title }
}

// WithPromptScopes restricts the prompt to callers granted at least one of
// the given scopes. A prompt without scopes is public.
func WithPromptScopes(scopes ...string) PromptOption {
	return func(p *Prompt) { p.scopes = scopes }
}

// NewPrompt builds a prompt from a typed handler. The arguments schema is
// derived from In once at construction.
func NewPrompt[In any](name, description string, handler func(ctx context.Context, args Arguments[In]) ([]PromptMessage, error), opts ...PromptOption) (Prompt, error) {
	if name == "" {
		return Prompt{}, fmt.Errorf("prompt name cannot be empty")
	}
	if handler == nil {
		return Prompt{}, fmt.Errorf("prompt handler cannot be nil")
	}

	var inProto In
	schema, err := DeriveSchema(inProto, name+"Arguments")
	if err != nil {
		return Prompt{}, fmt.Errorf("prompt %s: %w", name, err)
	}

	p := Prompt{
		name:            name,
		title:           titleFromName(name),
		description:     description,
		argumentsSchema: schema,
		invoke: func(ctx context.Context, raw json.RawMessage, caller Caller, state StateStore) ([]PromptMessage, error) {
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
		opt(&p)
	}
	return p, nil
}

// NewPromptNoArgs builds a prompt whose handler takes no invocation context.
func NewPromptNoArgs(name, description string, handler func(ctx context.Context) ([]PromptMessage, error), opts ...PromptOption) (Prompt, error) {
	if handler == nil {
		return Prompt{}, fmt.Errorf("prompt handler cannot be nil")
	}
	wrapped := func(ctx context.Context, _ Arguments[NoArguments]) ([]PromptMessage, error) {
		return handler(ctx)
	}
	return NewPrompt(name, description, wrapped, opts...)
}

// Name returns the unique prompt name.
func (p Prompt) Name() string { return p.name }

// Title returns the human-readable title.
func (p Prompt) Title() string { return p.title }

// Description returns the prompt description.
func (p Prompt) Description() string { return p.description }

// Scopes returns the scopes required to see and call the prompt.
func (p Prompt) Scopes() []string { return p.scopes }

// ArgumentsSchema returns the derived arguments schema.
func (p Prompt) ArgumentsSchema() *SchemaDescriptor { return p.argumentsSchema }

func (p Prompt) descriptor() PromptDescriptor {
	fields := p.argumentsSchema.Fields()
	args := make([]PromptArgument, 0, len(fields))
	for _, f := range fields {
		args = append(args, PromptArgument{
			Name:        f.Name,
			Description: f.Description,
			Required:    f.Required,
		})
	}
	return PromptDescriptor{
		Name:        p.name,
		Title:       p.title,
		Description: p.description,
		Arguments:   args,
	}
}
