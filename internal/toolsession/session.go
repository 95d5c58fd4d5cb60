package toolsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	clientName    = "go-mcp-agent"
	clientVersion = "dev"
)

// Options tunes a Session. The zero value is usable.
type Options struct {
	// CallTimeout bounds a single CallTool. Zero means no limit beyond the caller's context.
	CallTimeout time.Duration
	Logger      *slog.Logger
	// Transport, when set, is used by the first Connect instead of one built from
	// the spec. In-process servers connect this way. Reconnects dial the spec.
	Transport mcp.Transport
}

// Session is a connection to one MCP server. It is safe for concurrent use.
type Session struct {
	spec   string
	client *mcp.Client
	opts   Options
	log    *slog.Logger

	mu    sync.RWMutex
	conn  *mcp.ClientSession
	tools map[string]Descriptor
}

// New returns an unconnected session for the given server spec (see BuildTransport).
func New(spec string, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		spec:   spec,
		client: mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil),
		opts:   opts,
		log:    logger.With("component", "toolsession"),
	}
}

// Connect dials the server and completes the MCP handshake. Connecting an
// already connected session is a no-op; after the connection is lost Connect
// dials again.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return nil
	}
	transport := s.opts.Transport
	s.opts.Transport = nil
	if transport == nil {
		var err error
		if transport, err = transportBuilder(ctx, s.spec); err != nil {
			return unavailable("connect", err)
		}
	}
	conn, err := s.client.Connect(ctx, transport, nil)
	if err != nil {
		return unavailable("connect", err)
	}
	s.conn = conn
	s.log.Info("connected to tool server", "server", s.spec)
	go func() {
		s.drop(conn, conn.Wait())
	}()
	return nil
}

// ListTools fetches the server's tool list and replaces the dispatch table.
func (s *Session) ListTools(ctx context.Context) ([]Descriptor, error) {
	conn := s.current()
	if conn == nil {
		return nil, unavailable("list tools", nil)
	}

	var out []Descriptor
	table := make(map[string]Descriptor)
	for tool, err := range conn.Tools(ctx, nil) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("list tools: %w", ctxErr)
			}
			if connectionLost(err) {
				s.drop(conn, err)
			}
			return nil, unavailable("list tools", err)
		}
		d := toDescriptor(tool)
		out = append(out, d)
		table[d.Name] = d
	}

	s.mu.Lock()
	if s.conn == conn {
		s.tools = table
	}
	s.mu.Unlock()
	return out, nil
}

// CallTool invokes name with args, which must encode a JSON object (empty means {}).
func (s *Session) CallTool(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	s.mu.RLock()
	conn := s.conn
	_, known := s.tools[name]
	s.mu.RUnlock()

	if conn == nil {
		return Result{}, unavailable("call tool", nil)
	}
	if !known {
		return Result{}, &ToolInvocationError{Name: name, Cause: ErrUnknownTool}
	}
	params, err := decodeArguments(args)
	if err != nil {
		return Result{}, &ToolInvocationError{Name: name, Cause: err}
	}

	callCtx := ctx
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	res, err := conn.CallTool(callCtx, &mcp.CallToolParams{Name: name, Arguments: params})
	if err != nil {
		if connectionLost(err) {
			s.drop(conn, err)
			return Result{}, unavailable("call tool", err)
		}
		return Result{}, &ToolInvocationError{Name: name, Cause: err}
	}
	out := toResult(res)
	if res.IsError {
		msg := strings.TrimSpace(out.Text())
		if msg == "" {
			return Result{}, &ToolInvocationError{Name: name, Cause: ErrToolFailed}
		}
		return Result{}, &ToolInvocationError{Name: name, Cause: fmt.Errorf("%w: %s", ErrToolFailed, msg)}
	}
	return out, nil
}

// Ping checks that the server is still answering.
func (s *Session) Ping(ctx context.Context) error {
	conn := s.current()
	if conn == nil {
		return unavailable("ping", nil)
	}
	if err := conn.Ping(ctx, nil); err != nil {
		if connectionLost(err) {
			s.drop(conn, err)
		}
		return unavailable("ping", err)
	}
	return nil
}

// Close tears down the connection. Later calls fail with ErrSessionUnavailable.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.tools = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// drop forgets conn if it is still the live connection, so the next Connect redials.
func (s *Session) drop(conn *mcp.ClientSession, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.tools = nil
	s.mu.Unlock()
	if cause == nil {
		cause = mcp.ErrConnectionClosed
	}
	s.log.Warn("tool server connection lost", "server", s.spec, "err", cause)
	_ = conn.Close()
}

func (s *Session) current() *mcp.ClientSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArguments, err)
	}
	if args == nil {
		// literal null
		return map[string]any{}, nil
	}
	return args, nil
}

func connectionLost(err error) bool {
	return errors.Is(err, mcp.ErrConnectionClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe)
}
