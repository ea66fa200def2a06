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

package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teradata-labs/ask/pkg/mcp/client"
	"github.com/teradata-labs/ask/pkg/mcp/protocol"
	"github.com/teradata-labs/ask/pkg/mcp/transport"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStartupTimeout bounds handshake plus tool discovery per server.
	DefaultStartupTimeout = 30 * time.Second

	// maxParallelStarts caps how many servers launch at once.
	maxParallelStarts = 8
)

// TransportFactory launches the process for a server.
type TransportFactory func(ServerConfig) (transport.Transport, error)

// Config configures a Manager.
type Config struct {
	// Servers in configuration order.
	Servers []ServerConfig
	Logger  *zap.Logger

	// ClientName and ClientVersion are sent as clientInfo.
	ClientName    string
	ClientVersion string

	RequestTimeout time.Duration
	StartupTimeout time.Duration

	// NewTransport replaces process launch; nil uses stdio.
	NewTransport TransportFactory
}

// Status describes one configured server after Start.
type Status struct {
	Name    string
	Running bool
	Tools   int
	Err     error
}

// Manager owns at most one live session per configured server.
// Sessions start concurrently; a session that dies is relaunched on the
// next call, keeping the tool list discovered at startup.
type Manager struct {
	config Config
	logger *zap.Logger

	servers  map[string]ServerConfig
	sessions map[string]*session

	mu      sync.RWMutex
	tools   map[string][]protocol.Tool
	errs    map[string]error
	started bool
	stopped bool

	stopOnce sync.Once
}

type session struct {
	mu     sync.Mutex
	client *client.Client
}

// NewManager validates the server list and returns an idle manager.
func NewManager(config Config) (*Manager, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = client.DefaultRequestTimeout
	}
	if config.StartupTimeout <= 0 {
		config.StartupTimeout = DefaultStartupTimeout
	}

	m := &Manager{
		config:   config,
		logger:   config.Logger,
		servers:  make(map[string]ServerConfig, len(config.Servers)),
		sessions: make(map[string]*session, len(config.Servers)),
		tools:    make(map[string][]protocol.Tool),
		errs:     make(map[string]error),
	}

	for _, sc := range config.Servers {
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		if _, dup := m.servers[sc.Name]; dup {
			return nil, fmt.Errorf("invalid config: duplicate server %q", sc.Name)
		}
		m.servers[sc.Name] = sc
		m.sessions[sc.Name] = &session{}
	}

	if config.NewTransport == nil {
		m.config.NewTransport = m.stdioTransport
	}

	return m, nil
}

// Start launches every server concurrently, performs the handshake and
// discovers tools. A server that fails is recorded and skipped; Start
// itself only fails when ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already started")
	}
	m.started = true
	m.mu.Unlock()

	m.logger.Debug("starting MCP servers", zap.Int("server_count", len(m.config.Servers)))

	type result struct {
		client *client.Client
		tools  []protocol.Tool
		err    error
	}
	results := make([]result, len(m.config.Servers))

	var g errgroup.Group
	g.SetLimit(maxParallelStarts)
	for i, sc := range m.config.Servers {
		g.Go(func() error {
			c, tools, err := m.launch(ctx, sc, true)
			results[i] = result{client: c, tools: tools, err: err}
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sc := range m.config.Servers {
		r := results[i]
		if r.err != nil {
			m.errs[sc.Name] = r.err
			m.logger.Warn("MCP server unavailable", zap.String("server", sc.Name), zap.Error(r.err))
			continue
		}
		m.sessions[sc.Name].client = r.client
		m.tools[sc.Name] = r.tools
		m.logger.Debug("MCP server ready", zap.String("server", sc.Name), zap.Int("tools", len(r.tools)))
	}

	return ctx.Err()
}

// Tools returns the tools discovered for a server at startup, in
// discovery order.
func (m *Manager) Tools(server string) []protocol.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]protocol.Tool(nil), m.tools[server]...)
}

// ServerNames returns the configured servers in configuration order.
func (m *Manager) ServerNames() []string {
	names := make([]string, 0, len(m.config.Servers))
	for _, sc := range m.config.Servers {
		names = append(names, sc.Name)
	}
	return names
}

// Statuses reports every configured server in configuration order.
func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.config.Servers))
	for _, sc := range m.config.Servers {
		st := Status{Name: sc.Name, Err: m.errs[sc.Name], Tools: len(m.tools[sc.Name])}
		s := m.sessions[sc.Name]
		s.mu.Lock()
		st.Running = s.client != nil && s.client.Alive()
		s.mu.Unlock()
		out = append(out, st)
	}
	return out
}

// CallTool invokes a tool on a server and returns its text result,
// relaunching the server first when its session has died.
func (m *Manager) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (string, error) {
	c, err := m.ensure(ctx, server)
	if err != nil {
		return "", err
	}

	res, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}

// Stop closes every session and its process. It is idempotent.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()

		var wg sync.WaitGroup
		for name, s := range m.sessions {
			s.mu.Lock()
			c := s.client
			s.client = nil
			s.mu.Unlock()
			if c == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := c.Close(); err != nil {
					m.logger.Debug("error closing MCP session", zap.String("server", name), zap.Error(err))
				}
			}()
		}
		wg.Wait()
	})
}

func (m *Manager) ensure(ctx context.Context, server string) (*client.Client, error) {
	sc, ok := m.servers[server]
	if !ok {
		return nil, fmt.Errorf("%w: no MCP server named %q", types.ErrToolNotFound, server)
	}
	s := m.sessions[server]

	s.mu.Lock()
	defer s.mu.Unlock()

	m.mu.RLock()
	stopped := m.stopped
	m.mu.RUnlock()
	if stopped {
		return nil, fmt.Errorf("%w: server %q: manager stopped", types.ErrTransport, server)
	}

	if s.client != nil && s.client.Alive() {
		return s.client, nil
	}
	if s.client != nil {
		_ = s.client.Close()
		s.client = nil
	}

	m.logger.Info("relaunching MCP server", zap.String("server", server))
	c, _, err := m.launch(ctx, sc, false)
	if err != nil {
		m.mu.Lock()
		m.errs[server] = err
		m.mu.Unlock()
		return nil, err
	}
	s.client = c
	return c, nil
}

// launch starts the process, runs the handshake and, when discover is
// set, lists the server's tools through the filter.
func (m *Manager) launch(ctx context.Context, sc ServerConfig, discover bool) (*client.Client, []protocol.Tool, error) {
	tr, err := m.config.NewTransport(sc)
	if err != nil {
		return nil, nil, err
	}

	c, err := client.NewClient(client.Config{
		Transport:      tr,
		Logger:         m.logger,
		ServerName:     sc.Name,
		Name:           m.config.ClientName,
		Version:        m.config.ClientVersion,
		RequestTimeout: m.requestTimeout(sc),
	})
	if err != nil {
		_ = tr.Close()
		return nil, nil, err
	}

	sctx, cancel := context.WithTimeout(ctx, m.config.StartupTimeout)
	defer cancel()

	if _, err := c.Initialize(sctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	if !discover {
		return c, nil, nil
	}

	listed, err := c.ListTools(sctx)
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}

	tools := make([]protocol.Tool, 0, len(listed))
	for _, t := range listed {
		if sc.Tools.Allows(t.Name) {
			tools = append(tools, t)
		}
	}
	return c, tools, nil
}

func (m *Manager) requestTimeout(sc ServerConfig) time.Duration {
	if sc.Timeout > 0 {
		return sc.Timeout
	}
	return m.config.RequestTimeout
}

func (m *Manager) stdioTransport(sc ServerConfig) (transport.Transport, error) {
	return transport.NewStdioTransport(transport.StdioConfig{
		Name:           sc.Name,
		Command:        sc.Command,
		Args:           sc.Args,
		Env:            sc.Env,
		ReceiveTimeout: m.requestTimeout(sc),
		Logger:         m.logger,
	})
}
