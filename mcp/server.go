package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/logging"
	"github.com/vinayprograms/slideagent/tools"
)

// ProtocolVersion is the MCP revision spoken by both ends.
const ProtocolVersion = "2024-11-05"

// ToolProvider is the catalog a Server exposes. tools.Registry implements it.
type ToolProvider interface {
	Descriptors(ctx context.Context) ([]tools.Descriptor, error)
	CallJSON(ctx context.Context, name string, raw json.RawMessage) (tools.Result, error)
}

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server serves a tool catalog over stdio MCP.
type Server struct {
	provider    ToolProvider
	info        ServerInfo
	logger      *logging.Logger
	initialized atomic.Bool
}

// NewServer creates a server for the given provider.
func NewServer(provider ToolProvider, info ServerInfo, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		provider: provider,
		info:     info,
		logger:   logger.WithComponent("mcp-server"),
	}
}

// Serve handles requests from r and writes responses to w until EOF.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	return newConn(r, w, s).serve(ctx)
}

// Handle implements Handler.
func (s *Server) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "initialize":
		return map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": s.info,
		}, nil

	case "notifications/initialized":
		s.initialized.Store(true)
		s.logger.Debug("client initialized")
		return nil, nil

	case "ping":
		return map[string]interface{}{}, nil

	case "tools/list":
		return s.listTools(ctx)

	case "tools/call":
		var p ToolCallParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &RPCError{Code: InvalidParams, Message: "Invalid params", Data: err.Error()}
		}
		return s.callTool(ctx, p)

	default:
		return nil, &RPCError{Code: MethodNotFound, Message: "Method not found", Data: method}
	}
}

func (s *Server) listTools(ctx context.Context) (*ToolsListResult, error) {
	defs, err := s.provider.Descriptors(ctx)
	if err != nil {
		return nil, err
	}
	out := &ToolsListResult{Tools: make([]Tool, 0, len(defs))}
	for _, d := range defs {
		schema, err := d.Schema()
		if err != nil {
			return nil, err
		}
		out.Tools = append(out.Tools, Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schema,
		})
	}
	return out, nil
}

// callTool runs a tool. Every tool failure, an unknown name included, is
// reported in-band with isError set.
func (s *Server) callTool(ctx context.Context, p ToolCallParams) (*ToolCallResult, error) {
	s.logger.Info("tool_call", map[string]interface{}{"tool": p.Name, "args": string(p.Arguments)})

	res, err := s.provider.CallJSON(ctx, p.Name, p.Arguments)
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnknownTool) {
			return errorCallResult(err.Error()), nil
		}
		return nil, fmt.Errorf("call %s: %w", p.Name, err)
	}
	return toCallResult(res), nil
}

// toCallResult maps a normalized result onto MCP content: one text item
// per list element, a single item otherwise.
func toCallResult(res tools.Result) *ToolCallResult {
	switch res.Kind {
	case tools.ResultError:
		return errorCallResult(res.Text)
	case tools.ResultTextList:
		out := &ToolCallResult{Content: make([]Content, 0, len(res.Items))}
		for _, item := range res.Items {
			out.Content = append(out.Content, Content{Type: "text", Text: item})
		}
		return out
	default:
		return &ToolCallResult{Content: []Content{{Type: "text", Text: res.Text}}}
	}
}

func errorCallResult(msg string) *ToolCallResult {
	return &ToolCallResult{
		Content: []Content{{Type: "text", Text: msg}},
		IsError: true,
	}
}
