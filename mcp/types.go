package mcp

import (
	"bytes"
	"encoding/json"
)

// JSON-RPC 2.0 error codes used by the dispatcher.
const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternal       = -32603
	ErrorCodeToolInvocation = -32000
)

// Methods understood by the dispatcher. Anything else is method-not-found.
const (
	MethodInitialize  = "initialize"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPromptsList = "prompts/list"
	MethodPromptsCall = "prompts/call"
)

const jsonRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request envelope. The ID is kept as raw
// JSON so that string, number and null identifiers round-trip verbatim into
// the response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Error represents a JSON-RPC 2.0 error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Response represents a JSON-RPC 2.0 response envelope. Exactly one of Result
// and Err is set; MarshalJSON enforces the invariant.
type Response struct {
	ID     json.RawMessage
	Result interface{}
	Err    *Error
}

// NewResponse creates a successful response carrying the request's ID.
func NewResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{ID: id, Result: result}
}

// NewErrorResponse creates an error response carrying the request's ID.
func NewErrorResponse(id json.RawMessage, code int, message string, data interface{}) *Response {
	return &Response{ID: id, Err: &Error{Code: code, Message: message, Data: data}}
}

// MarshalJSON serializes the envelope with the ID emitted verbatim (null when
// the request carried none) and exactly one of result/error present. An error
// set on the response always wins over a result.
func (r *Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"jsonrpc":"2.0","id":`)
	if len(r.ID) == 0 {
		buf.WriteString("null")
	} else {
		buf.Write(r.ID)
	}
	if r.Err != nil {
		errJSON, err := json.Marshal(r.Err)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"error":`)
		buf.Write(errJSON)
	} else {
		resultJSON, err := json.Marshal(r.Result)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"result":`)
		buf.Write(resultJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a response envelope. Used by tests and clients.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Err    *Error          `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	r.Err = raw.Err
	if raw.Result != nil {
		r.Result = raw.Result
	}
	return nil
}

// CallParams carries the parameters of tools/call and prompts/call.
type CallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// InitializeResult is the result payload of the initialize method.
type InitializeResult struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Instructions string       `json:"instructions,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities advertises which protocol features this server supports.
// Notifications are never supported by this engine.
type Capabilities struct {
	Tools         bool `json:"tools"`
	Prompts       bool `json:"prompts"`
	Notifications bool `json:"notifications"`
}

// ToolDescriptor is the wire representation of a tool in tools/list.
type ToolDescriptor struct {
	Name         string          `json:"name"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	InputSchema  json.RawMessage `json:"inputSchema"`
	OutputSchema json.RawMessage `json:"outputSchema"`
}

// ListToolsResult is the result payload of tools/list.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// PromptArgument describes one argument of a prompt in prompts/list.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// PromptDescriptor is the wire representation of a prompt in prompts/list.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments"`
}

// ListPromptsResult is the result payload of prompts/list.
type ListPromptsResult struct {
	Prompts []PromptDescriptor `json:"prompts"`
}

// TextContent is the only prompt message content type the engine supports.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextContent builds a TextContent with the type field populated.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// PromptMessage is one templated conversation message produced by a prompt.
type PromptMessage struct {
	Role    string      `json:"role"`
	Content TextContent `json:"content"`
}

// Prompt message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// CallToolResult is the success payload of tools/call.
type CallToolResult struct {
	Output interface{} `json:"output"`
}

// ErrorMessage is the alternative tools/call payload produced when a tool
// opted into returning business errors as values instead of JSON-RPC errors.
type ErrorMessage struct {
	Error   bool   `json:"error"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// CallPromptResult is the success payload of prompts/call.
type CallPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}
