package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/petasbytes/go-mcp-agent/internal/config"
	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/internal/runner"
	"github.com/petasbytes/go-mcp-agent/internal/toolsession"
	"github.com/petasbytes/go-mcp-agent/memory"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	noteStyle   = lipgloss.NewStyle().Faint(true)
)

func main() {
	configPath := flag.String("config", "agent.toml", "path to the TOML config file")
	verbose := flag.Bool("v", false, "debug logging")
	writeConfig := flag.Bool("write-config", false, "write a default config to -config and exit")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *writeConfig {
		if err := writeDefaultConfig(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
			os.Exit(1)
		}
		fmt.Println(noteStyle.Render("wrote " + *configPath))
		return
	}

	if err := run(*configPath, logger); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger.Debug("settings loaded", "config", cfg.Redacted())

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Println("\nExiting...")
		cancel()
	}()

	session := toolsession.New(cfg.MCP.Server, toolsession.Options{
		CallTimeout: cfg.CallTimeout(),
		Logger:      logger,
	})
	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("close tool session", "err", err)
		}
	}()

	r := runner.New(client, session, memory.NewConversation(cfg.LLM.SystemPrompt), runner.Options{
		MaxToolRounds: cfg.Agent.MaxToolRounds,
		HistoryBudget: cfg.Agent.HistoryBudget,
		Logger:        logger,
	})

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(noteStyle.Render("MCP client started. Type your query, or 'quit' to exit."))

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Print(promptStyle.Render("Query:") + " ")
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			break outer
		case line, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if q := strings.ToLower(query); q == "quit" || q == "exit" {
			break
		}

		answer, err := r.Query(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			// The conversation keeps whatever was appended; the user can retry.
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
			if errors.Is(err, toolsession.ErrSessionUnavailable) {
				reconnect(ctx, session, logger)
			}
			continue
		}
		fmt.Println(answerStyle.Render(answer))
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("stdin read error", "err", err)
	}
	return nil
}

// reconnect redials the tool server after a lost connection so the next query can run.
func reconnect(ctx context.Context, session *toolsession.Session, logger *slog.Logger) {
	if err := session.Ping(ctx); err == nil {
		return
	}
	if err := session.Connect(ctx); err != nil {
		logger.Warn("reconnect to tool server failed", "err", err)
		return
	}
	fmt.Println(noteStyle.Render("reconnected to tool server"))
}

func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return config.Default().Save(path)
}

func newClient(cfg *config.Config) (provider.CompletionClient, error) {
	switch config.Provider(strings.ToLower(cfg.LLM.Provider)) {
	case config.ProviderOpenAI:
		return provider.NewOpenAI(provider.OpenAIConfig{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			MaxTokens:  cfg.LLM.MaxTokens,
			MaxRetries: cfg.LLM.MaxRetries,
			Timeout:    cfg.LLMTimeout(),
		}), nil
	case config.ProviderAnthropic:
		return provider.NewAnthropic(provider.AnthropicConfig{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			MaxTokens:  cfg.LLM.MaxTokens,
			MaxRetries: cfg.LLM.MaxRetries,
			Timeout:    cfg.LLMTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
