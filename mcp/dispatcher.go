package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shaharia-lab/httpmcp/observability"
)

// Dispatch processes one raw JSON-RPC request and always produces exactly one
// response; no error escapes past this boundary. The request moves through
// parse, envelope check, method resolution, authorization, argument
// validation and invocation, with every failure short-circuiting into an
// error envelope that preserves the request's id verbatim.
func (s *Server) Dispatch(ctx context.Context, payload []byte, caller Caller, state StateStore) *Response {
	ctx, span := observability.StartSpan(ctx, "mcp.Dispatch")
	defer span.End()

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.WithErr(err).Debug("failed to parse request")
		return NewErrorResponse(nil, ErrorCodeParseError, "Parse error", nil)
	}

	if req.JSONRPC != jsonRPCVersion || req.Method == "" {
		return NewErrorResponse(req.ID, ErrorCodeInvalidRequest, "Invalid Request", nil)
	}

	s.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"id":     string(req.ID),
	}).Debug("dispatching request")

	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(&req)
	case MethodToolsList:
		return s.handleToolsList(&req, caller)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, &req, caller, state)
	case MethodPromptsList:
		return s.handlePromptsList(&req, caller)
	case MethodPromptsCall:
		return s.handlePromptsCall(ctx, &req, caller, state)
	default:
		return NewErrorResponse(req.ID, ErrorCodeMethodNotFound, "Method not found", nil)
	}
}

// DispatchBytes is a convenience wrapper that serializes the response. A
// marshalling failure degrades to an internal error envelope.
func (s *Server) DispatchBytes(ctx context.Context, payload []byte, caller Caller, state StateStore) []byte {
	resp := s.Dispatch(ctx, payload, caller, state)
	out, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithErr(err).Error("failed to marshal response")
		fallback, _ := json.Marshal(NewErrorResponse(resp.ID, ErrorCodeInternal, "Internal error", nil))
		return fallback
	}
	return out
}

func (s *Server) handleInitialize(req *Request) *Response {
	return NewResponse(req.ID, InitializeResult{
		Name:         s.name,
		Version:      s.version,
		Instructions: s.instructions,
		Capabilities: Capabilities{
			Tools:         s.registry.HasTools(),
			Prompts:       s.registry.HasPrompts(),
			Notifications: false,
		},
	})
}

func (s *Server) handleToolsList(req *Request, caller Caller) *Response {
	visible := s.registry.ListTools(caller)
	descriptors := make([]ToolDescriptor, 0, len(visible))
	for _, t := range visible {
		descriptors = append(descriptors, t.descriptor())
	}
	return NewResponse(req.ID, ListToolsResult{Tools: descriptors})
}

func (s *Server) handlePromptsList(req *Request, caller Caller) *Response {
	visible := s.registry.ListPrompts(caller)
	descriptors := make([]PromptDescriptor, 0, len(visible))
	for _, p := range visible {
		descriptors = append(descriptors, p.descriptor())
	}
	return NewResponse(req.ID, ListPromptsResult{Prompts: descriptors})
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request, caller Caller, state StateStore) *Response {
	params, errResp := parseCallParams(req)
	if errResp != nil {
		return errResp
	}

	// A tool the caller cannot see answers exactly like a tool that does not
	// exist, so names cannot be enumerated by probing.
	tool, ok := s.registry.Tool(params.Name)
	if !ok || !authorized(tool.scopes, caller.Scopes) {
		s.logger.WithFields(map[string]interface{}{"tool": params.Name}).Debug("tool not resolvable for caller")
		return NewErrorResponse(req.ID, ErrorCodeMethodNotFound, fmt.Sprintf("Tool %s not found", params.Name), nil)
	}

	if err := tool.inputSchema.Validate(params.Arguments); err != nil {
		return invalidParamsResponse(req.ID, err)
	}

	output, err := s.invokeTool(ctx, tool, params.Arguments, caller, state)
	if err != nil {
		var ie *internalError
		if errors.As(err, &ie) {
			s.logger.WithErr(ie).WithFields(map[string]interface{}{"tool": tool.name}).Error("tool fault")
			return NewErrorResponse(req.ID, ErrorCodeInternal, "Internal error", nil)
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return invalidParamsResponse(req.ID, ve)
		}
		if tool.returnErrorAsValue {
			return NewResponse(req.ID, ErrorMessage{
				Error:   true,
				Tool:    tool.name,
				Message: err.Error(),
			})
		}
		return NewErrorResponse(req.ID, ErrorCodeToolInvocation,
			fmt.Sprintf("Error calling tool %s: %v", tool.name, err), nil)
	}

	return NewResponse(req.ID, CallToolResult{Output: output})
}

func (s *Server) handlePromptsCall(ctx context.Context, req *Request, caller Caller, state StateStore) *Response {
	params, errResp := parseCallParams(req)
	if errResp != nil {
		return errResp
	}

	prompt, ok := s.registry.Prompt(params.Name)
	if !ok || !authorized(prompt.scopes, caller.Scopes) {
		s.logger.WithFields(map[string]interface{}{"prompt": params.Name}).Debug("prompt not resolvable for caller")
		return NewErrorResponse(req.ID, ErrorCodeMethodNotFound, fmt.Sprintf("Prompt %s not found", params.Name), nil)
	}

	if err := prompt.argumentsSchema.Validate(params.Arguments); err != nil {
		return invalidParamsResponse(req.ID, err)
	}

	messages, err := s.invokePrompt(ctx, prompt, params.Arguments, caller, state)
	if err != nil {
		var ie *internalError
		if errors.As(err, &ie) {
			s.logger.WithErr(ie).WithFields(map[string]interface{}{"prompt": prompt.name}).Error("prompt fault")
			return NewErrorResponse(req.ID, ErrorCodeInternal, "Internal error", nil)
		}
		var ve *ValidationError
		if errors.As(err, &ve) {
			return invalidParamsResponse(req.ID, ve)
		}
		return NewErrorResponse(req.ID, ErrorCodeToolInvocation,
			fmt.Sprintf("Error getting prompt %s: %v", prompt.name, err), nil)
	}

	return NewResponse(req.ID, CallPromptResult{
		Description: prompt.description,
		Messages:    messages,
	})
}

// invokeTool runs the handler, converting panics into internal faults. The
// dispatcher adds no locking and no timeout around the call.
func (s *Server) invokeTool(ctx context.Context, tool Tool, raw json.RawMessage, caller Caller, state StateStore) (output interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{cause: fmt.Errorf("tool %s panicked: %v", tool.name, r)}
		}
	}()
	return tool.invoke(ctx, raw, caller, state)
}

func (s *Server) invokePrompt(ctx context.Context, prompt Prompt, raw json.RawMessage, caller Caller, state StateStore) (messages []PromptMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &internalError{cause: fmt.Errorf("prompt %s panicked: %v", prompt.name, r)}
		}
	}()
	return prompt.invoke(ctx, raw, caller, state)
}

func parseCallParams(req *Request) (CallParams, *Response) {
	var params CallParams
	if len(req.Params) == 0 {
		return params, NewErrorResponse(req.ID, ErrorCodeInvalidParams, "Invalid params: params object is required", nil)
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return params, NewErrorResponse(req.ID, ErrorCodeInvalidParams, "Invalid params", nil)
	}
	if params.Name == "" {
		return params, NewErrorResponse(req.ID, ErrorCodeInvalidParams, "Invalid params: name is required", nil)
	}
	return params, nil
}

func invalidParamsResponse(id json.RawMessage, err error) *Response {
	var ve *ValidationError
	if errors.As(err, &ve) {
		var data interface{}
		if ve.Field != "" {
			data = map[string]string{"field": ve.Field}
		}
		return NewErrorResponse(id, ErrorCodeInvalidParams, fmt.Sprintf("Invalid params: %v", ve), data)
	}
	return NewErrorResponse(id, ErrorCodeInvalidParams, fmt.Sprintf("Invalid params: %v", err), nil)
}
