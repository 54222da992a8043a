package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Request is a JSON-RPC 2.0 request. ID is absent on notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("RPC error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Standard error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Handler handles one JSON-RPC method call.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	return f(ctx, method, params)
}

// conn serves newline-delimited JSON-RPC over a reader/writer pair.
type conn struct {
	reader  *bufio.Reader
	writer  io.Writer
	handler Handler
	mu      sync.Mutex
}

func newConn(r io.Reader, w io.Writer, handler Handler) *conn {
	return &conn{
		reader:  bufio.NewReader(r),
		writer:  w,
		handler: handler,
	}
}

// serve reads and handles requests until EOF, a read error or cancellation.
func (c *conn) serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := c.reader.ReadBytes('\n')
		if len(line) > 0 {
			c.handleLine(ctx, line)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}

func (c *conn) handleLine(ctx context.Context, line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		c.sendError(nil, ParseError, "Parse error", err.Error())
		return
	}
	if req.JSONRPC != "2.0" {
		c.sendError(req.ID, InvalidRequest, "Invalid Request", "jsonrpc must be 2.0")
		return
	}

	result, err := c.handler.Handle(ctx, req.Method, req.Params)

	// Notifications get no response, even on failure.
	if req.ID == nil {
		return
	}
	if err != nil {
		if rpcErr, ok := err.(*RPCError); ok {
			c.sendError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
			return
		}
		c.sendError(req.ID, InternalError, "Internal error", err.Error())
		return
	}
	c.sendResult(req.ID, result)
}

func (c *conn) sendResult(id *int64, result interface{}) {
	data, err := json.Marshal(result)
	if err != nil {
		c.sendError(id, InternalError, "Internal error", err.Error())
		return
	}
	c.send(Response{JSONRPC: "2.0", ID: id, Result: data})
}

func (c *conn) sendError(id *int64, code int, message, data string) {
	c.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

// send writes a JSON message followed by a newline.
func (c *conn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.writer.Write(append(data, '\n'))
	return err
}
