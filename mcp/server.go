package mcp

import (
	"github.com/shaharia-lab/httpmcp/observability"
)

const (
	defaultServerName    = "httpmcp-server"
	defaultServerVersion = "0.1.0"
)

// ServerConfig holds all configuration for Server
type ServerConfig struct {
	logger       observability.Logger
	serverName   string
	version      string
	instructions string
	tools        []Tool
	prompts      []Prompt
}

// ServerConfigOption is a function that modifies ServerConfig
type ServerConfigOption func(*ServerConfig)

// UseLogger sets a custom logger
func UseLogger(logger observability.Logger) ServerConfigOption {
	return func(c *ServerConfig) {
		c.logger = logger
	}
}

// UseServerInfo sets server name and version
func UseServerInfo(name, version string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.serverName = name
		c.version = version
	}
}

// UseInstructions sets the usage instructions advertised by initialize
func UseInstructions(instructions string) ServerConfigOption {
	return func(c *ServerConfig) {
		c.instructions = instructions
	}
}

// UseTools registers the server's tools
func UseTools(tools ...Tool) ServerConfigOption {
	return func(c *ServerConfig) {
		c.tools = append(c.tools, tools...)
	}
}

// UsePrompts registers the server's prompts
func UsePrompts(prompts ...Prompt) ServerConfigOption {
	return func(c *ServerConfig) {
		c.prompts = append(c.prompts, prompts...)
	}
}

// Server is the protocol engine: it owns the registry for its lifetime and
// dispatches JSON-RPC requests against it. Transports feed it raw envelopes
// together with a per-call Caller and the host's state container.
//
// Dispatch imposes no mutual exclusion: concurrent invocations proceed
// independently, and handlers touching shared state bring their own
// synchronization.
type Server struct {
	name         string
	version      string
	instructions string
	registry     *Registry
	logger       observability.Logger
}

// NewServer creates a new Server instance with the given options. It fails
// when two registered tools or prompts share a name.
func NewServer(opts ...ServerConfigOption) (*Server, error) {
	cfg := &ServerConfig{
		logger:     observability.NewDefaultLogger(),
		serverName: defaultServerName,
		version:    defaultServerVersion,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	registry, err := NewRegistry(cfg.tools, cfg.prompts)
	if err != nil {
		return nil, err
	}

	return &Server{
		name:         cfg.serverName,
		version:      cfg.version,
		instructions: cfg.instructions,
		registry:     registry,
		logger:       cfg.logger,
	}, nil
}

// Name returns the server name advertised by initialize.
func (s *Server) Name() string { return s.name }

// Version returns the server version advertised by initialize.
func (s *Server) Version() string { return s.version }

// Registry returns the server's registry.
func (s *Server) Registry() *Registry { return s.registry }
