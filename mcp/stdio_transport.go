package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shaharia-lab/httpmcp/observability"
)

// StdioTransport is the sequential stream adapter: it reads newline-delimited
// JSON-RPC requests from its input and writes one response line per request,
// in order. A single session-wide Caller applies to every request; the stream
// carries no per-request credentials.
type StdioTransport struct {
	server *Server
	in     io.Reader
	out    io.Writer
	caller Caller
	state  StateStore
	logger observability.Logger

	writeMu sync.Mutex
}

// StdioOption configures the stdio transport.
type StdioOption func(*StdioTransport)

// UseSessionCaller fixes the Caller for the whole session.
func UseSessionCaller(caller Caller) StdioOption {
	return func(t *StdioTransport) { t.caller = caller }
}

// UseStdioState attaches the host's process-lifetime state container.
func UseStdioState(state StateStore) StdioOption {
	return func(t *StdioTransport) { t.state = state }
}

// UseStdioLogger sets a custom logger.
func UseStdioLogger(logger observability.Logger) StdioOption {
	return func(t *StdioTransport) { t.logger = logger }
}

// NewStdioTransport creates the stream adapter for the given server. Pass
// os.Stdin and os.Stdout for a real stdio session.
func NewStdioTransport(server *Server, in io.Reader, out io.Writer, opts ...StdioOption) *StdioTransport {
	t := &StdioTransport{
		server: server,
		in:     in,
		out:    out,
		logger: server.logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run processes the stream until EOF or context cancellation. Requests are
// handled strictly one at a time: each response is written before the next
// line is read, so response order always matches request order. Malformed
// lines produce an error envelope and the session continues.
func (t *StdioTransport) Run(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "stdio.Run")
	defer span.End()

	logger := t.logger.WithFields(map[string]interface{}{
		"session_id": uuid.NewString(),
	})
	logger.Info("starting stdio session")

	scanner := bufio.NewScanner(t.in)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, defaultMaxBodyBytes)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				done <- ctx.Err()
				return
			default:
			}

			line := scanner.Bytes()
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}

			// Notifications carry no id and expect no response line.
			if isNotification(line) {
				logger.Debug("skipping notification")
				continue
			}

			response := t.server.DispatchBytes(ctx, line, t.caller, t.state)
			if err := t.writeLine(response); err != nil {
				done <- fmt.Errorf("failed to write response: %w", err)
				return
			}
		}
		done <- scanner.Err()
	}()

	select {
	case <-ctx.Done():
		logger.Info("stdio session cancelled")
		return ctx.Err()
	case err := <-done:
		if err != nil {
			logger.WithErr(err).Error("stdio session ended with error")
			return err
		}
		logger.Info("stdio session ended")
		return nil
	}
}

func (t *StdioTransport) writeLine(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.out.Write(payload); err != nil {
		return err
	}
	_, err := t.out.Write([]byte("\n"))
	return err
}
