// Command toolserver serves the arithmetic, web search and fetch tools over MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/petasbytes/go-mcp-agent/internal/config"
	"github.com/petasbytes/go-mcp-agent/tools"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "agent.toml", "path to the TOML config file")
	transport := flag.String("transport", "", "stdio or http; overrides the config file")
	flag.Parse()

	// stdout carries the protocol in stdio mode, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(*configPath, *transport, logger); err != nil {
		logger.Error("toolserver stopped", "err", err)
		os.Exit(1)
	}
}

func run(configPath, transport string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Info("settings loaded", "config", cfg.Redacted())

	defs, err := tools.Registry(tools.Config{
		SearchAPIKey:      cfg.Tools.APIKey,
		SearchURL:         cfg.Tools.SearchURL,
		Proxy:             cfg.Tools.Proxy,
		HTTPTimeout:       cfg.HTTPTimeout(),
		FetchMaxBytes:     cfg.Tools.FetchMaxBytes,
		AllowPrivateHosts: cfg.Tools.AllowPrivateHosts,
	})
	if err != nil {
		return err
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "go-mcp-agent-tools", Version: version}, nil)
	tools.Register(server, defs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch config.Transport(strings.ToLower(cfg.Server.Transport)) {
	case config.TransportStdio:
		logger.Info("serving over stdio", "tools", len(defs))
		return server.Run(ctx, &mcp.StdioTransport{})
	case config.TransportHTTP:
		return serveHTTP(ctx, server, cfg.ListenAddr(), logger)
	default:
		return fmt.Errorf("unsupported transport %q", cfg.Server.Transport)
	}
}

func serveHTTP(ctx context.Context, server *mcp.Server, addr string, logger *slog.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving streamable http", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
