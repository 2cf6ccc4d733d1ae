package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/shaharia-lab/httpmcp/observability"
)

const defaultMaxBodyBytes = 4 * 1024 * 1024 // 4MiB

// CallerFactory converts the underlying HTTP request into a Caller. The
// default factory copies the headers and grants no scopes; hosts plug in
// their authentication backend here.
type CallerFactory func(r *http.Request) (Caller, error)

// DefaultCallerFactory builds a Caller carrying the request headers and an
// empty scope set.
func DefaultCallerFactory(r *http.Request) (Caller, error) {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}
	return Caller{Headers: headers}, nil
}

// HTTPTransport is the request/response adapter: one JSON-RPC envelope in,
// one envelope out, per POST. The hosting framework runs each inbound call
// as independent concurrent work; the transport shares no mutable per-call
// state between requests. JSON-RPC-level failures always answer 200 with an
// error body; only transport-level failures use HTTP error codes.
type HTTPTransport struct {
	server        *Server
	callerFactory CallerFactory
	state         StateStore
	logger        observability.Logger
	limiter       *rate.Limiter
	maxBodyBytes  int64
	router        chi.Router
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*HTTPTransport)

// UseCallerFactory sets the factory deriving a Caller from each request.
func UseCallerFactory(factory CallerFactory) HTTPOption {
	return func(t *HTTPTransport) { t.callerFactory = factory }
}

// UseHTTPState attaches the host's process-lifetime state container.
func UseHTTPState(state StateStore) HTTPOption {
	return func(t *HTTPTransport) { t.state = state }
}

// UseHTTPLogger sets a custom logger.
func UseHTTPLogger(logger observability.Logger) HTTPOption {
	return func(t *HTTPTransport) { t.logger = logger }
}

// UseRateLimit applies a global request rate limit. Requests over the limit
// are rejected with 429 before reaching the dispatcher.
func UseRateLimit(limit rate.Limit, burst int) HTTPOption {
	return func(t *HTTPTransport) { t.limiter = rate.NewLimiter(limit, burst) }
}

// UseMaxBodyBytes overrides the request body size cap.
func UseMaxBodyBytes(n int64) HTTPOption {
	return func(t *HTTPTransport) { t.maxBodyBytes = n }
}

// NewHTTPTransport creates the HTTP adapter for the given server.
func NewHTTPTransport(server *Server, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		server:        server,
		callerFactory: DefaultCallerFactory,
		logger:        server.logger,
		maxBodyBytes:  defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(t)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/", t.handlePost)
	t.router = r

	return t
}

// Handler exposes the transport as an http.Handler mountable by the host.
func (t *HTTPTransport) Handler() http.Handler {
	return t.router
}

func (t *HTTPTransport) handlePost(w http.ResponseWriter, r *http.Request) {
	logger := t.logger.WithFields(map[string]interface{}{
		"request_id": middleware.GetReqID(r.Context()),
	})

	if t.limiter != nil && !t.limiter.Allow() {
		logger.Warn("request rate limit exceeded")
		writeError(w, http.StatusTooManyRequests, nil, ErrorCodeInternal, "Too many requests")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		logger.WithFields(map[string]interface{}{"content_type": contentType}).Error("unsupported media type")
		writeError(w, http.StatusUnsupportedMediaType, nil, ErrorCodeInvalidRequest,
			"Unsupported Media Type: Content-Type must be application/json")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, t.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Error("request body too large")
			writeError(w, http.StatusRequestEntityTooLarge, nil, ErrorCodeInvalidRequest, "Request body too large")
			return
		}
		logger.WithErr(err).Error("failed to read request body")
		writeError(w, http.StatusBadRequest, nil, ErrorCodeParseError, "Failed to read request body")
		return
	}

	// Notifications are acknowledged without dispatching; the engine does not
	// support them.
	if isNotification(body) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0"}`))
		return
	}

	caller, err := t.callerFactory(r)
	if err != nil {
		logger.WithErr(err).Warn("caller factory rejected request")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		return
	}

	response := t.server.DispatchBytes(r.Context(), body, caller, t.state)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(response)
}

func isNotification(body []byte) bool {
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return strings.HasPrefix(probe.Method, "notifications/")
}

func writeError(w http.ResponseWriter, status int, id json.RawMessage, code int, message string) {
	payload, err := json.Marshal(NewErrorResponse(id, code, message, nil))
	if err != nil {
		http.Error(w, message, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
