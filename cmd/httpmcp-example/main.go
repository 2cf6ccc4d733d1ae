// Command httpmcp-example runs a small demonstration server over either
// transport. It registers a handful of tools and prompts covering the typed
// handler shapes: plain inputs, no-argument handlers, scoped operations,
// shared state access and error-as-value reporting.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/shaharia-lab/httpmcp/auth"
	"github.com/shaharia-lab/httpmcp/mcp"
	"github.com/shaharia-lab/httpmcp/observability"
)

type GreetInput struct {
	Salutation string  `json:"salutation" description:"Word to greet with"`
	Name       *string `json:"name,omitempty" description:"Optional name to address"`
}

type GreetOutput struct {
	Answer string `json:"answer"`
}

type WeatherInput struct {
	Location string `json:"location" description:"City to report weather for"`
}

type WeatherOutput struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Conditions  string  `json:"conditions"`
}

type TimeOutput struct {
	Now string `json:"now"`
}

type CallListOutput struct {
	Calls []string `json:"calls"`
}

type CodeReviewInput struct {
	Code string `json:"code" description:"Source code to review"`
}

// CallLog records which tools were invoked. It lives in the shared state
// container, so it guards itself against concurrent handler calls.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) Record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func buildServer(logger observability.Logger) (*mcp.Server, mcp.StateStore, error) {
	callLog := &CallLog{}
	state := mcp.MapState{"call_log": callLog}

	greet, err := mcp.NewTool("greet", "Build a greeting sentence",
		func(ctx context.Context, args mcp.Arguments[GreetInput]) (GreetOutput, error) {
			var log *CallLog
			if err := args.State("call_log", &log); err == nil {
				log.Record("greet")
			}
			answer := fmt.Sprintf("Hello, %s!", args.Inputs.Salutation)
			if args.Inputs.Name != nil {
				answer = fmt.Sprintf("%s, %s!", args.Inputs.Salutation, *args.Inputs.Name)
			}
			return GreetOutput{Answer: answer}, nil
		})
	if err != nil {
		return nil, nil, err
	}

	weather, err := mcp.NewTool("get_weather", "Report the weather for a location",
		func(ctx context.Context, args mcp.Arguments[WeatherInput]) (WeatherOutput, error) {
			if args.Inputs.Location == "nowhere" {
				return WeatherOutput{}, fmt.Errorf("no weather data for %q", args.Inputs.Location)
			}
			return WeatherOutput{
				Location:    args.Inputs.Location,
				Temperature: 21.5,
				Conditions:  "clear",
			}, nil
		},
		mcp.WithReturnErrorAsValue())
	if err != nil {
		return nil, nil, err
	}

	now, err := mcp.NewToolNoArgs("get_time", "Report the current server time",
		func(ctx context.Context) (TimeOutput, error) {
			return TimeOutput{Now: time.Now().UTC().Format(time.RFC3339)}, nil
		})
	if err != nil {
		return nil, nil, err
	}

	audit, err := mcp.NewToolNoArgs("list_calls", "List tools invoked this session",
		func(ctx context.Context) (CallListOutput, error) {
			return CallListOutput{Calls: callLog.Calls()}, nil
		},
		mcp.WithToolScopes("admin"))
	if err != nil {
		return nil, nil, err
	}

	review, err := mcp.NewPrompt("code_review", "Ask for a review of a code snippet",
		func(ctx context.Context, args mcp.Arguments[CodeReviewInput]) ([]mcp.PromptMessage, error) {
			return []mcp.PromptMessage{
				{Role: mcp.RoleSystem, Content: mcp.NewTextContent("You are a meticulous code reviewer.")},
				{Role: mcp.RoleUser, Content: mcp.NewTextContent("Please review:\n" + args.Inputs.Code)},
			}, nil
		})
	if err != nil {
		return nil, nil, err
	}

	server, err := mcp.NewServer(
		mcp.UseLogger(logger),
		mcp.UseServerInfo("httpmcp-example", "0.1.0"),
		mcp.UseInstructions("Demonstration server; call greet to get started."),
		mcp.UseTools(greet, weather, now, audit),
		mcp.UsePrompts(review),
	)
	if err != nil {
		return nil, nil, err
	}
	return server, state, nil
}

func main() {
	var (
		mode      = flag.String("mode", "http", "transport mode: http or stdio")
		addr      = flag.String("addr", ":8080", "listen address for http mode")
		jwtSecret = flag.String("jwt-secret", "", "HMAC secret for bearer token auth (http mode)")
	)
	flag.Parse()

	logrusLogger := logrus.New()
	logrusLogger.SetFormatter(&logrus.JSONFormatter{})
	logger := observability.NewLogrusLogger(logrusLogger)

	server, state, err := buildServer(logger)
	if err != nil {
		logger.WithErr(err).Error("failed to build server")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "stdio":
		transport := mcp.NewStdioTransport(server, os.Stdin, os.Stdout,
			mcp.UseStdioState(state),
			mcp.UseStdioLogger(logger),
			mcp.UseSessionCaller(auth.CallerFromScopes("admin")),
		)
		if err := transport.Run(ctx); err != nil && ctx.Err() == nil {
			logger.WithErr(err).Error("stdio session failed")
			os.Exit(1)
		}
	case "http":
		opts := []mcp.HTTPOption{
			mcp.UseHTTPState(state),
			mcp.UseHTTPLogger(logger),
		}
		if *jwtSecret != "" {
			verifier := auth.NewJWTVerifier([]byte(*jwtSecret))
			opts = append(opts, mcp.UseCallerFactory(verifier.CallerFactory()))
		}
		transport := mcp.NewHTTPTransport(server, opts...)

		httpServer := &http.Server{
			Addr:              *addr,
			Handler:           transport.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.WithFields(map[string]interface{}{"addr": *addr}).Info("listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		if err := g.Wait(); err != nil && ctx.Err() == nil {
			logger.WithErr(err).Error("server failed")
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}
