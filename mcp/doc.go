// Package mcp implements a JSON-RPC 2.0 protocol engine that exposes
// registries of typed tools and prompts for remote discovery and invocation.
//
// The engine is transport-agnostic at its core: Server.Dispatch consumes one
// raw JSON-RPC request together with a Caller descriptor and a shared-state
// lookup, and produces exactly one response. Two transport adapters are
// provided on top of it: HTTPTransport serves single-shot request/response
// exchanges over a POST endpoint, and StdioTransport processes a sequential
// newline-delimited stream.
//
// Tools and prompts are registered once at server construction and are
// immutable afterwards. Input and output schemas are derived from Go struct
// types at registration time, and every invocation validates its arguments
// against the derived schema before the handler runs. Visibility and
// invocability are governed by scope-based authorization: an operation with
// required scopes is available to a caller holding at least one of them, and
// operations the caller cannot see respond exactly like operations that do
// not exist.
package mcp
