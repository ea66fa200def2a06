// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package mcptest provides an in-memory MCP server that implements
// transport.Transport, for tests that need a live peer without a process.
package mcptest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teradata-labs/ask/pkg/mcp/protocol"
	"github.com/teradata-labs/ask/pkg/types"
)

// Handler answers one tools/call. Returning a non-nil *protocol.Error
// sends a JSON-RPC error instead of a result.
type Handler func(ctx context.Context, args map[string]interface{}) (*protocol.CallToolResult, *protocol.Error)

// Server is a scripted MCP server. Requests are dispatched on their own
// goroutine so handlers that block do not hold up other calls; responses
// are therefore delivered in completion order, not request order.
type Server struct {
	Name            string
	ProtocolVersion string

	mu       sync.Mutex
	tools    []protocol.Tool
	handlers map[string]Handler
	calls    []protocol.CallToolParams
	notes    []string
	pageSize int

	// FailInitialize makes initialize answer with a JSON-RPC error.
	FailInitialize bool

	out       chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewServer returns a server named name.
func NewServer(name string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		Name:            name,
		ProtocolVersion: protocol.ProtocolVersion,
		handlers:        make(map[string]Handler),
		out:             make(chan []byte, 256),
		closed:          make(chan struct{}),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// AddTool advertises a tool answered by handler.
func (s *Server) AddTool(tool protocol.Tool, handler Handler) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	return s
}

// AddTextTool advertises a tool that always answers with text.
func (s *Server) AddTextTool(name, text string) *Server {
	return s.AddTool(protocol.Tool{
		Name:        name,
		Description: name + " tool",
		InputSchema: map[string]interface{}{"type": "object"},
	}, func(context.Context, map[string]interface{}) (*protocol.CallToolResult, *protocol.Error) {
		return TextResult(text), nil
	})
}

// SetPageSize splits tools/list into pages of n tools.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	s.pageSize = n
	s.mu.Unlock()
}

// Calls returns the tools/call requests received so far.
func (s *Server) Calls() []protocol.CallToolParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.CallToolParams(nil), s.calls...)
}

// Notifications returns the notification methods received so far.
func (s *Server) Notifications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notes...)
}

// Push sends a raw message to the client, as a server-initiated request
// or notification would be.
func (s *Server) Push(msg []byte) {
	select {
	case s.out <- msg:
	case <-s.closed:
	}
}

// Crash simulates the server process dying: pending and future Receive
// calls fail with a transport error and handlers see a canceled context.
func (s *Server) Crash() {
	s.closeOnce.Do(func() {
		s.cancel()
		close(s.closed)
	})
}

// Send implements transport.Transport.
func (s *Server) Send(ctx context.Context, message []byte) error {
	select {
	case <-s.closed:
		return fmt.Errorf("%w: server %q: closed", types.ErrTransport, s.Name)
	default:
	}

	var msg protocol.Message
	if err := json.Unmarshal(message, &msg); err != nil {
		return fmt.Errorf("mcptest: bad message: %w", err)
	}

	switch {
	case msg.IsNotification():
		s.mu.Lock()
		s.notes = append(s.notes, msg.Method)
		s.mu.Unlock()
	case msg.IsRequest():
		go s.dispatch(&msg)
	}
	return nil
}

// Receive implements transport.Transport.
func (s *Server) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg := <-s.out:
		return msg, nil
	case <-s.closed:
		return nil, fmt.Errorf("%w: server %q: closed", types.ErrTransport, s.Name)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close implements transport.Transport.
func (s *Server) Close() error {
	s.Crash()
	return nil
}

func (s *Server) dispatch(msg *protocol.Message) {
	var (
		result interface{}
		rpcErr *protocol.Error
	)

	switch msg.Method {
	case protocol.MethodInitialize:
		if s.FailInitialize {
			rpcErr = protocol.NewError(protocol.InternalError, "initialize refused", nil)
			break
		}
		result = protocol.InitializeResult{
			ProtocolVersion: s.ProtocolVersion,
			Capabilities:    protocol.ServerCapabilities{Tools: &protocol.ToolsCapability{}},
			ServerInfo:      protocol.Implementation{Name: s.Name, Version: "test"},
		}
	case protocol.MethodToolsList:
		var params protocol.ListToolsParams
		_ = json.Unmarshal(msg.Params, &params)
		result = s.listPage(params.Cursor)
	case protocol.MethodToolsCall:
		var params protocol.CallToolParams
		_ = json.Unmarshal(msg.Params, &params)

		s.mu.Lock()
		s.calls = append(s.calls, params)
		handler := s.handlers[params.Name]
		s.mu.Unlock()

		if handler == nil {
			rpcErr = protocol.NewError(protocol.InvalidParams, "unknown tool: "+params.Name, nil)
			break
		}
		res, herr := handler(s.ctx, params.Arguments)
		if herr != nil {
			rpcErr = herr
		} else {
			result = res
		}
	case protocol.MethodPing:
		result = struct{}{}
	default:
		rpcErr = protocol.NewError(protocol.MethodNotFound, "method not found", nil)
	}

	resp := protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: msg.ID, Error: rpcErr}
	if rpcErr == nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return
		}
		resp.Result = raw
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.Push(data)
}

func (s *Server) listPage(cursor string) protocol.ListToolsResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pageSize <= 0 {
		return protocol.ListToolsResult{Tools: append([]protocol.Tool(nil), s.tools...)}
	}

	start := 0
	if cursor != "" {
		_, _ = fmt.Sscanf(cursor, "%d", &start)
	}
	end := min(start+s.pageSize, len(s.tools))
	page := protocol.ListToolsResult{Tools: append([]protocol.Tool(nil), s.tools[start:end]...)}
	if end < len(s.tools) {
		page.NextCursor = fmt.Sprintf("%d", end)
	}
	return page
}

// TextResult builds a successful text result.
func TextResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{Content: []protocol.Content{{Type: "text", Text: text}}}
}

// ErrorResult builds an isError result.
func ErrorResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{Content: []protocol.Content{{Type: "text", Text: text}}, IsError: true}
}
