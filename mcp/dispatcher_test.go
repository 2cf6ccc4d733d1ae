package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/httpmcp/observability"
)

type greetInput struct {
	Question string `json:"question"`
}

type greetOutput struct {
	Answer string `json:"answer"`
}

// wireResponse decodes dispatcher output for assertions.
type wireResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Err     *Error          `json:"error"`
}

func newDispatchServer(t *testing.T) *Server {
	t.Helper()

	greet, err := NewTool("greet", "Build a greeting sentence",
		func(ctx context.Context, args Arguments[greetInput]) (greetOutput, error) {
			return greetOutput{Answer: fmt.Sprintf("Hello, %s!", args.Inputs.Question)}, nil
		})
	require.NoError(t, err)

	secret := newEchoTool(t, "secret_tool", WithToolScopes("admin"))

	failing, err := NewToolNoArgs("failing", "always fails",
		func(ctx context.Context) (greetOutput, error) {
			return greetOutput{}, errors.New("boom")
		})
	require.NoError(t, err)

	softFail, err := NewToolNoArgs("soft_fail", "fails as a value",
		func(ctx context.Context) (greetOutput, error) {
			return greetOutput{}, errors.New("storage offline")
		},
		WithReturnErrorAsValue())
	require.NoError(t, err)

	panics, err := NewToolNoArgs("panics", "always panics",
		func(ctx context.Context) (greetOutput, error) {
			panic("kaboom")
		},
		WithReturnErrorAsValue())
	require.NoError(t, err)

	recorder, err := NewToolNoArgs("record", "records into shared state",
		func(ctx context.Context) (greetOutput, error) {
			return greetOutput{Answer: "recorded"}, nil
		})
	require.NoError(t, err)

	slow, err := NewToolNoArgs("slow", "answers after a short delay",
		func(ctx context.Context) (greetOutput, error) {
			time.Sleep(30 * time.Millisecond)
			return greetOutput{Answer: "finally"}, nil
		})
	require.NoError(t, err)

	review := newEchoPrompt(t, "code_review")
	guarded := newEchoPrompt(t, "guarded", WithPromptScopes("admin"))

	server, err := NewServer(
		UseLogger(observability.NewNullLogger()),
		UseServerInfo("test-server", "9.9.9"),
		UseInstructions("call greet first"),
		UseTools(greet, secret, failing, softFail, panics, recorder, slow),
		UsePrompts(review, guarded),
	)
	require.NoError(t, err)
	return server
}

func dispatchRaw(t *testing.T, s *Server, payload string, caller Caller) wireResponse {
	t.Helper()
	out := s.DispatchBytes(context.Background(), []byte(payload), caller, nil)
	var resp wireResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func TestDispatchParseError(t *testing.T) {
	s := newDispatchServer(t)
	out := s.DispatchBytes(context.Background(), []byte(`{"jsonrpc":`), Caller{}, nil)

	assert.Contains(t, string(out), `"id":null`)

	var resp wireResponse
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrorCodeParseError, resp.Err.Code)
	assert.Nil(t, resp.Result)
}

func TestDispatchInvalidRequest(t *testing.T) {
	s := newDispatchServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{name: "missing jsonrpc", payload: `{"id":1,"method":"initialize"}`},
		{name: "wrong jsonrpc version", payload: `{"jsonrpc":"1.0","id":1,"method":"initialize"}`},
		{name: "missing method", payload: `{"jsonrpc":"2.0","id":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatchRaw(t, s, tt.payload, Caller{})
			require.NotNil(t, resp.Err)
			assert.Equal(t, ErrorCodeInvalidRequest, resp.Err.Code)
		})
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s, `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, Caller{})
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrorCodeMethodNotFound, resp.Err.Code)
	assert.Equal(t, "Method not found", resp.Err.Message)
}

func TestDispatchInitialize(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, Caller{})
	require.Nil(t, resp.Err)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "test-server", result.Name)
	assert.Equal(t, "9.9.9", result.Version)
	assert.Equal(t, "call greet first", result.Instructions)
	assert.True(t, result.Capabilities.Tools)
	assert.True(t, result.Capabilities.Prompts)
	assert.False(t, result.Capabilities.Notifications)
}

func TestDispatchToolCall(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"greet","arguments":{"question":"hi"}}}`,
		Caller{})
	require.Nil(t, resp.Err)
	assert.JSONEq(t, `{"output":{"answer":"Hello, hi!"}}`, string(resp.Result))
}

func TestDispatchIDRoundTrip(t *testing.T) {
	s := newDispatchServer(t)

	tests := []struct {
		name   string
		id     string
		wantID string
	}{
		{name: "string id", id: `"abc-1"`, wantID: `"abc-1"`},
		{name: "numeric id", id: `42`, wantID: `42`},
		{name: "null id", id: `null`, wantID: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"method":"initialize"}`, tt.id)
			out := s.DispatchBytes(context.Background(), []byte(payload), Caller{}, nil)
			assert.Contains(t, string(out), fmt.Sprintf(`"id":%s`, tt.wantID))
		})
	}
}

func TestDispatchMaskedNotFound(t *testing.T) {
	s := newDispatchServer(t)

	unknown := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope","arguments":{}}}`,
		Caller{})
	require.NotNil(t, unknown.Err)
	assert.Equal(t, ErrorCodeMethodNotFound, unknown.Err.Code)
	assert.Equal(t, "Tool nope not found", unknown.Err.Message)

	// An existing but unauthorized tool must be indistinguishable from an
	// unknown one.
	denied := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"secret_tool","arguments":{"text":"x"}}}`,
		Caller{})
	require.NotNil(t, denied.Err)
	assert.Equal(t, unknown.Err.Code, denied.Err.Code)
	assert.Equal(t, "Tool secret_tool not found", denied.Err.Message)
	assert.Equal(t,
		strings.Replace(unknown.Err.Message, "nope", "secret_tool", 1),
		denied.Err.Message)

	// The same caller with the right scope gets through.
	granted := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"secret_tool","arguments":{"text":"x"}}}`,
		Caller{Scopes: []string{"admin"}})
	assert.Nil(t, granted.Err)
}

func TestDispatchInvalidParams(t *testing.T) {
	s := newDispatchServer(t)

	tests := []struct {
		name        string
		payload     string
		wantMessage string
	}{
		{
			name:        "missing params",
			payload:     `{"jsonrpc":"2.0","id":1,"method":"tools/call"}`,
			wantMessage: "params object is required",
		},
		{
			name:        "missing name",
			payload:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"arguments":{}}}`,
			wantMessage: "name is required",
		},
		{
			name:        "missing required argument",
			payload:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"greet","arguments":{}}}`,
			wantMessage: "question",
		},
		{
			name:        "unexpected argument for no-args tool",
			payload:     `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"failing","arguments":{"x":1}}}`,
			wantMessage: "unexpected field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatchRaw(t, s, tt.payload, Caller{})
			require.NotNil(t, resp.Err)
			assert.Equal(t, ErrorCodeInvalidParams, resp.Err.Code)
			assert.Contains(t, resp.Err.Message, tt.wantMessage)
		})
	}
}

func TestDispatchToolError(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"failing"}}`,
		Caller{})
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrorCodeToolInvocation, resp.Err.Code)
	assert.Equal(t, "Error calling tool failing: boom", resp.Err.Message)
}

func TestDispatchToolErrorAsValue(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"soft_fail"}}`,
		Caller{})
	require.Nil(t, resp.Err, "business errors surface inside the result")
	assert.JSONEq(t,
		`{"error":true,"tool":"soft_fail","message":"storage offline"}`,
		string(resp.Result))
}

func TestDispatchPanicIsInternal(t *testing.T) {
	s := newDispatchServer(t)
	// The panicking tool opted into error-as-value; panics must still become
	// internal errors.
	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"panics"}}`,
		Caller{})
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrorCodeInternal, resp.Err.Code)
	assert.Equal(t, "Internal error", resp.Err.Message)
	assert.NotContains(t, resp.Err.Message, "kaboom")
}

func TestDispatchToolsList(t *testing.T) {
	s := newDispatchServer(t)

	anonymous := dispatchRaw(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, Caller{})
	require.Nil(t, anonymous.Err)
	var listed ListToolsResult
	require.NoError(t, json.Unmarshal(anonymous.Result, &listed))

	var names []string
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"greet", "failing", "soft_fail", "panics", "record", "slow"}, names)

	admin := dispatchRaw(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, Caller{Scopes: []string{"admin"}})
	require.Nil(t, admin.Err)
	require.NoError(t, json.Unmarshal(admin.Result, &listed))
	assert.Len(t, listed.Tools, 7)
	assert.Equal(t, "secret_tool", listed.Tools[1].Name, "registration order preserved")
}

func TestDispatchToolsListEmpty(t *testing.T) {
	server, err := NewServer(
		UseLogger(observability.NewNullLogger()),
		UsePrompts(newEchoPrompt(t, "only_prompt")),
	)
	require.NoError(t, err)

	resp := dispatchRaw(t, server, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, Caller{})
	require.Nil(t, resp.Err)
	assert.JSONEq(t, `{"tools":[]}`, string(resp.Result))

	init := dispatchRaw(t, server, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`, Caller{})
	var result InitializeResult
	require.NoError(t, json.Unmarshal(init.Result, &result))
	assert.False(t, result.Capabilities.Tools)
	assert.True(t, result.Capabilities.Prompts)
}

func TestDispatchPromptCall(t *testing.T) {
	s := newDispatchServer(t)
	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"prompts/call","params":{"name":"code_review","arguments":{"text":"fmt.Println"}}}`,
		Caller{})
	require.Nil(t, resp.Err)

	var result CallPromptResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, "echoes its input as a message", result.Description)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, RoleUser, result.Messages[0].Role)
	assert.Equal(t, "text", result.Messages[0].Content.Type)
	assert.Equal(t, "fmt.Println", result.Messages[0].Content.Text)
}

func TestDispatchPromptMaskedNotFound(t *testing.T) {
	s := newDispatchServer(t)

	resp := dispatchRaw(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"prompts/call","params":{"name":"guarded","arguments":{"text":"x"}}}`,
		Caller{})
	require.NotNil(t, resp.Err)
	assert.Equal(t, ErrorCodeMethodNotFound, resp.Err.Code)
	assert.Equal(t, "Prompt guarded not found", resp.Err.Message)

	listed := dispatchRaw(t, s, `{"jsonrpc":"2.0","id":1,"method":"prompts/list"}`, Caller{})
	var prompts ListPromptsResult
	require.NoError(t, json.Unmarshal(listed.Result, &prompts))
	require.Len(t, prompts.Prompts, 1)
	assert.Equal(t, "code_review", prompts.Prompts[0].Name)
}

func TestDispatchStatePassthrough(t *testing.T) {
	type counter struct{ n int }
	shared := &counter{}

	bump, err := NewTool("bump", "increments shared state",
		func(ctx context.Context, args Arguments[NoArguments]) (greetOutput, error) {
			var c *counter
			if err := args.State("counter", &c); err != nil {
				return greetOutput{}, err
			}
			c.n++
			return greetOutput{Answer: fmt.Sprintf("%d", c.n)}, nil
		})
	require.NoError(t, err)

	server, err := NewServer(
		UseLogger(observability.NewNullLogger()),
		UseTools(bump),
	)
	require.NoError(t, err)

	state := MapState{"counter": shared}
	payload := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"bump"}}`

	out := server.DispatchBytes(context.Background(), []byte(payload), Caller{}, state)
	assert.Contains(t, string(out), `"answer":"1"`)
	out = server.DispatchBytes(context.Background(), []byte(payload), Caller{}, state)
	assert.Contains(t, string(out), `"answer":"2"`)
	assert.Equal(t, 2, shared.n)
}
