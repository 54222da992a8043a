// Package mcp provides MCP (Model Context Protocol) support over stdio: a
// client that turns a tool server into the agent's catalog, and a server that
// publishes an in-process tool registry.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/vinayprograms/slideagent/errors"
	"github.com/vinayprograms/slideagent/tools"
)

// Client is an MCP client connected to one tool server.
type Client struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	mu      sync.Mutex
	id      atomic.Int64
	pending map[int64]chan *Response
	pendMu  sync.Mutex
	done    chan struct{}
	tools   []Tool
	ready   bool
}

// Tool represents an MCP tool definition. The schema is kept raw so the
// order of its properties survives.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Descriptor converts the wire definition to a tool descriptor. Parameters
// follow the key order of inputSchema.properties as sent.
func (t Tool) Descriptor() tools.Descriptor {
	d := tools.Descriptor{Name: t.Name, Description: t.Description}
	gjson.GetBytes(t.InputSchema, "properties").ForEach(func(key, value gjson.Result) bool {
		d.Params = append(d.Params, tools.Param{
			Name: key.String(),
			Type: tools.ParseParamType(value.Get("type").String()),
		})
		return true
	})
	return d
}

// ToolsListResult is the result of tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the parameters for tools/call.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolCallResult is the result of tools/call.
type ToolCallResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// Result normalizes the wire result. The content list is structured, so it
// always becomes a list result; an error flag wins over content.
func (r *ToolCallResult) Result() tools.Result {
	if r.IsError {
		texts := make([]string, 0, len(r.Content))
		for _, c := range r.Content {
			texts = append(texts, c.String())
		}
		return tools.ErrorResult(strings.Join(texts, "\n"))
	}
	items := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		items = append(items, c.String())
	}
	return tools.ListResult(items)
}

// Content represents content in a tool result.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for images
	MimeType string `json:"mimeType,omitempty"`
}

// String returns the item's text, or a printed form for non-text items.
func (c Content) String() string {
	if c.Type == "text" || c.Text != "" {
		return c.Text
	}
	if c.MimeType != "" {
		return fmt.Sprintf("<%s %s>", c.Type, c.MimeType)
	}
	return fmt.Sprintf("<%s>", c.Type)
}

// ServerConfig configures an MCP server connection.
type ServerConfig struct {
	Command string            `json:"command" toml:"command"`
	Args    []string          `json:"args,omitempty" toml:"args"`
	Env     map[string]string `json:"env,omitempty" toml:"env"`
}

// NewClient starts the server process and connects to its stdio.
func NewClient(config ServerConfig) (*Client, error) {
	cmd := exec.Command(config.Command, config.Args...)

	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout: %w", err)
	}

	// Server diagnostics go to our stderr.
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	c := NewPipeClient(stdout, stdin)
	c.cmd = cmd
	return c, nil
}

// NewPipeClient connects to a server over an existing reader/writer pair.
func NewPipeClient(r io.Reader, w io.WriteCloser) *Client {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	c := &Client{
		stdin:   w,
		scanner: scanner,
		pending: make(map[int64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readResponses()
	return c
}

// Initialize performs the MCP initialization handshake.
func (c *Client) Initialize(ctx context.Context) error {
	_, err := c.call(ctx, "initialize", map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    "slideagent",
			"version": "1.0.0",
		},
	})
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	if err := c.notify("notifications/initialized", nil); err != nil {
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	c.ready = true
	return nil
}

// ListTools fetches available tools from the server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.ready {
		return nil, fmt.Errorf("client not initialized")
	}

	result, err := c.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listResult ToolsListResult
	if err := json.Unmarshal(result, &listResult); err != nil {
		return nil, fmt.Errorf("failed to parse tools list: %w", err)
	}

	c.tools = listResult.Tools
	return listResult.Tools, nil
}

// CallTool invokes a tool on the server.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (*ToolCallResult, error) {
	if !c.ready {
		return nil, fmt.Errorf("client not initialized")
	}

	result, err := c.call(ctx, "tools/call", ToolCallParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	var callResult ToolCallResult
	if err := json.Unmarshal(result, &callResult); err != nil {
		return nil, fmt.Errorf("failed to parse tool result: %w", err)
	}

	return &callResult, nil
}

// Descriptors lists the server's tools as descriptors.
func (c *Client) Descriptors(ctx context.Context) ([]tools.Descriptor, error) {
	list, err := c.ListTools(ctx)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeToolCall, "list tools")
	}
	defs := make([]tools.Descriptor, len(list))
	for i, t := range list {
		defs[i] = t.Descriptor()
	}
	return defs, nil
}

// Call invokes a tool with ordered arguments and normalizes the result.
// Transport failures are TOOL_CALL errors; tool-side failures are results.
func (c *Client) Call(ctx context.Context, name string, args tools.Arguments) (tools.Result, error) {
	res, err := c.CallTool(ctx, name, json.RawMessage(args.JSON()))
	if err != nil {
		return tools.Result{}, errors.WrapWithCode(err, errors.ErrCodeToolCall, "call "+name,
			errors.WithMetadata("tool", name))
	}
	return res.Result(), nil
}

// Tools returns cached tools.
func (c *Client) Tools() []Tool {
	return c.tools
}

// Close shuts down the connection and, if this client started it, the server.
func (c *Client) Close() error {
	c.stdin.Close()
	if c.cmd != nil {
		return c.cmd.Wait()
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := c.id.Add(1)

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		raw = data
	}

	req := Request{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
		Params:  raw,
	}

	respCh := make(chan *Response, 1)
	c.pendMu.Lock()
	c.pending[id] = respCh
	c.pendMu.Unlock()

	defer func() {
		c.pendMu.Lock()
		delete(c.pending, id)
		c.pendMu.Unlock()
	}()

	if err := c.send(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-c.done:
		return nil, fmt.Errorf("server closed the connection")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) notify(method string, params interface{}) error {
	req := struct {
		JSONRPC string      `json:"jsonrpc"`
		Method  string      `json:"method"`
		Params  interface{} `json:"params,omitempty"`
	}{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}
	return c.send(req)
}

func (c *Client) send(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.stdin, "%s\n", data)
	return err
}

func (c *Client) readResponses() {
	defer close(c.done)
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue // Skip malformed responses
		}
		if resp.ID == nil {
			continue // Server notification
		}

		c.pendMu.Lock()
		ch, ok := c.pending[*resp.ID]
		c.pendMu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}
