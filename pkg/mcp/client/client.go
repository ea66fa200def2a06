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
// Package client implements the MCP client for connecting to MCP servers.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teradata-labs/ask/pkg/mcp/protocol"
	"github.com/teradata-labs/ask/pkg/mcp/transport"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds every request when the config sets none.
const DefaultRequestTimeout = 60 * time.Second

// Config configures an MCP client.
type Config struct {
	Transport transport.Transport
	Logger    *zap.Logger

	// ServerName identifies the peer in logs and errors.
	ServerName string

	// Name and Version are sent as clientInfo.
	Name    string
	Version string

	RequestTimeout time.Duration
}

// Client speaks MCP to one server over one transport. Responses are
// matched to callers strictly by request id, so a server may answer
// concurrent calls in any order.
//
// When the transport fails, every pending call is resolved with an error
// wrapping types.ErrCanceled and the client is dead for good; callers
// must build a new client over a new transport.
type Client struct {
	transport      transport.Transport
	logger         *zap.Logger
	serverName     string
	info           protocol.Implementation
	requestTimeout time.Duration

	nextID int64

	pendingMu sync.Mutex
	pending   map[string]chan *protocol.Response

	toolsMu sync.RWMutex
	tools   map[string]protocol.Tool

	serverInfo *protocol.InitializeResult

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	done     chan struct{}
	deadOnce sync.Once
	deadErr  error

	closeOnce sync.Once
}

// NewClient creates a client and starts its receive loop.
func NewClient(config Config) (*Client, error) {
	if config.Transport == nil {
		return nil, errors.New("transport is required")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Name == "" {
		config.Name = "ask"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		transport:      config.Transport,
		logger:         config.Logger.With(zap.String("server", config.ServerName)),
		serverName:     config.ServerName,
		info:           protocol.Implementation{Name: config.Name, Version: config.Version},
		requestTimeout: config.RequestTimeout,
		pending:        make(map[string]chan *protocol.Response),
		tools:          make(map[string]protocol.Tool),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
	}

	c.wg.Add(1)
	go c.receiveLoop()

	return c, nil
}

// Initialize performs the handshake and sends the initialized notification.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolVersion,
		ClientInfo:      c.info,
	}

	var result protocol.InitializeResult
	if err := c.sendRequest(ctx, protocol.MethodInitialize, params, &result); err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: server %q rejected initialize: %v", types.ErrProtocol, c.serverName, rpcErr)
		}
		return nil, err
	}

	if err := protocol.ValidateInitializeResult(&result); err != nil {
		return nil, fmt.Errorf("%w: server %q: %v", types.ErrProtocol, c.serverName, err)
	}

	if err := c.notify(ctx, protocol.MethodInitialized, nil); err != nil {
		return nil, err
	}

	c.serverInfo = &result
	c.logger.Debug("MCP session initialized",
		zap.String("protocol_version", result.ProtocolVersion),
		zap.String("server_name", result.ServerInfo.Name),
		zap.String("server_version", result.ServerInfo.Version),
	)

	return &result, nil
}

// ServerInfo returns the handshake answer, or nil before Initialize.
func (c *Client) ServerInfo() *protocol.InitializeResult {
	return c.serverInfo
}

// Alive reports whether the session can still carry requests.
func (c *Client) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the session dies.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the receive loop and shuts the transport down.
// Pending calls are resolved with a cancellation error.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.transport.Close()
		c.wg.Wait()
		c.markDead(fmt.Errorf("%w: server %q: client closed", types.ErrTransport, c.serverName))
	})
	return err
}

func (c *Client) sendRequest(ctx context.Context, method string, params interface{}, result interface{}) error {
	if !c.Alive() {
		return fmt.Errorf("%w: server %q: session closed: %v", types.ErrTransport, c.serverName, c.deadErr)
	}

	id := protocol.NewNumericRequestID(c.nextRequestID())
	key := id.String()

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	respCh := make(chan *protocol.Response, 1)
	c.pendingMu.Lock()
	c.pending[key] = respCh
	c.pendingMu.Unlock()

	if err := c.transport.Send(ctx, data); err != nil {
		c.forget(key)
		if errors.Is(err, types.ErrTransport) {
			c.markDead(err)
		}
		return err
	}

	c.logger.Debug("MCP request sent", zap.String("method", method), zap.String("request_id", key))

	timer := time.NewTimer(c.requestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return resp.Error
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%w: server %q: decode %s result: %v", types.ErrProtocol, c.serverName, method, err)
			}
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%w: server %q: %s: %w", types.ErrCanceled, c.serverName, method, c.deadErr)
	case <-timer.C:
		c.forget(key)
		// A server that stops answering is treated like one that exited,
		// so the next call relaunches it.
		err := fmt.Errorf("%w: server %q: %s got no response within %s", types.ErrTimeout, c.serverName, method, c.requestTimeout)
		c.markDead(err)
		return err
	case <-ctx.Done():
		c.forget(key)
		return ctx.Err()
	}
}

func (c *Client) notify(ctx context.Context, method string, params interface{}) error {
	req, err := protocol.NewRequest(nil, method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", method, err)
	}
	return c.transport.Send(ctx, data)
}

func (c *Client) receiveLoop() {
	defer c.wg.Done()

	for {
		data, err := c.transport.Receive(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if errors.Is(err, types.ErrTimeout) {
				// Idle session; per-request timers bound the callers.
				continue
			}
			c.markDead(err)
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("dropping malformed MCP message", zap.Error(err), zap.ByteString("data", data))
			continue
		}

		switch {
		case msg.IsResponse():
			c.handleResponse(msg.Response())
		case msg.IsRequest():
			c.handleServerRequest(&msg)
		case msg.IsNotification():
			c.logger.Debug("MCP notification", zap.String("method", msg.Method))
		default:
			c.logger.Warn("dropping unroutable MCP message", zap.ByteString("data", data))
		}
	}
}

func (c *Client) handleResponse(resp *protocol.Response) {
	key := resp.ID.String()

	c.pendingMu.Lock()
	ch, ok := c.pending[key]
	delete(c.pending, key)
	c.pendingMu.Unlock()

	if !ok {
		c.logger.Debug("response for unknown or expired request", zap.String("request_id", key))
		return
	}
	ch <- resp
}

// handleServerRequest answers requests the server sends to us. Only ping
// is supported; the client advertises no other capabilities.
func (c *Client) handleServerRequest(msg *protocol.Message) {
	resp := protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: msg.ID}
	if msg.Method == protocol.MethodPing {
		resp.Result = json.RawMessage(`{}`)
	} else {
		resp.Error = protocol.NewError(protocol.MethodNotFound, "method not found: "+msg.Method, nil)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.transport.Send(c.ctx, data); err != nil {
		c.logger.Debug("failed to answer server request", zap.String("method", msg.Method), zap.Error(err))
	}
}

// markDead records the first fatal error, wakes every pending caller and
// drops the pending table.
func (c *Client) markDead(err error) {
	c.deadOnce.Do(func() {
		c.deadErr = err
		close(c.done)

		c.pendingMu.Lock()
		n := len(c.pending)
		c.pending = make(map[string]chan *protocol.Response)
		c.pendingMu.Unlock()

		if c.ctx.Err() == nil {
			c.logger.Warn("MCP session lost", zap.Error(err), zap.Int("pending", n))
		}
	})
}

func (c *Client) forget(key string) {
	c.pendingMu.Lock()
	delete(c.pending, key)
	c.pendingMu.Unlock()
}

func (c *Client) nextRequestID() int64 {
	return atomic.AddInt64(&c.nextID, 1)
}
