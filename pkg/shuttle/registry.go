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

package shuttle

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// BindingKind says where a tool runs.
type BindingKind int

const (
	// BindingBuiltIn tools run in-process.
	BindingBuiltIn BindingKind = iota
	// BindingRemote tools run on a tool server.
	BindingRemote
)

func (k BindingKind) String() string {
	if k == BindingRemote {
		return "remote"
	}
	return "builtin"
}

// RemoteCaller forwards a call to a named tool server.
type RemoteCaller interface {
	CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (string, error)
}

// Binding ties a descriptor to exactly one executor.
type Binding struct {
	Kind BindingKind

	// Tool is set for BindingBuiltIn.
	Tool Tool

	// Server, RemoteTool and Caller are set for BindingRemote.
	Server     string
	RemoteTool string
	Caller     RemoteCaller
}

// Descriptor is one entry of the tool catalog.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Binding     Binding
}

// Remote reports whether the tool runs on a tool server.
func (d *Descriptor) Remote() bool {
	return d.Binding.Kind == BindingRemote
}

// BuiltIn builds the descriptor for an in-process tool.
func BuiltIn(tool Tool) Descriptor {
	return Descriptor{
		Name:        tool.Name(),
		Description: tool.Description(),
		InputSchema: tool.InputSchema().Map(),
		Binding:     Binding{Kind: BindingBuiltIn, Tool: tool},
	}
}

type entry struct {
	desc Descriptor
	seq  int
}

// Registry maps fully qualified tool names to executors.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]*entry
	seq     int
	logger  *zap.Logger
	servers map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:   make(map[string]*entry),
		logger:  logger,
		servers: make(map[string]int),
	}
}

// SetServerOrder fixes the catalog position of each server's tools.
// Servers not listed sort after listed ones, in registration order.
func (r *Registry) SetServerOrder(servers []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers = make(map[string]int, len(servers))
	for i, s := range servers {
		r.servers[s] = i
	}
}

// Register adds a tool. The first registrant of a name wins; a later one
// is rejected with types.ErrRegistrationConflict.
func (r *Registry) Register(desc Descriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	switch desc.Binding.Kind {
	case BindingBuiltIn:
		if desc.Binding.Tool == nil {
			return fmt.Errorf("register tool %s: built-in binding without a tool", desc.Name)
		}
	case BindingRemote:
		if desc.Binding.Caller == nil || desc.Binding.Server == "" {
			return fmt.Errorf("register tool %s: remote binding without a server", desc.Name)
		}
	}
	if desc.InputSchema == nil {
		desc.InputSchema = map[string]interface{}{"type": "object"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tools[desc.Name]; ok {
		err := fmt.Errorf("%w: %s (already provided by %s)", types.ErrRegistrationConflict, desc.Name, origin(existing.desc))
		r.logger.Warn("tool registration rejected",
			zap.String("tool", desc.Name),
			zap.String("kept", origin(existing.desc)),
			zap.String("rejected", origin(desc)))
		return err
	}

	r.seq++
	r.tools[desc.Name] = &entry{desc: desc, seq: r.seq}
	return nil
}

// RegisterTools registers built-in tools, logging and skipping conflicts.
func (r *Registry) RegisterTools(tools ...Tool) {
	for _, t := range tools {
		_ = r.Register(BuiltIn(t))
	}
}

// Resolve looks a tool up by name.
func (r *Registry) Resolve(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.tools[name]; ok {
		d := e.desc
		return &d, nil
	}

	if hint := r.suggest(name); hint != "" {
		return nil, fmt.Errorf("%w: %s (did you mean %s?)", types.ErrToolNotFound, name, hint)
	}
	return nil, fmt.Errorf("%w: %s", types.ErrToolNotFound, name)
}

// DescribeAll returns the catalog: built-ins in registration order, then
// server tools grouped by server order and kept in discovery order.
func (r *Registry) DescribeAll() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.tools))
	for _, e := range r.tools {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].desc, entries[j].desc
		if a.Binding.Kind != b.Binding.Kind {
			return a.Binding.Kind == BindingBuiltIn
		}
		if a.Binding.Kind == BindingRemote && a.Binding.Server != b.Binding.Server {
			ra, rb := r.serverRank(a.Binding.Server), r.serverRank(b.Binding.Server)
			if ra != rb {
				return ra < rb
			}
		}
		return entries[i].seq < entries[j].seq
	})

	out := make([]Descriptor, len(entries))
	for i, e := range entries {
		out[i] = e.desc
	}
	return out
}

// Specs returns the catalog in the form sent to the model.
func (r *Registry) Specs() []types.ToolSpec {
	descs := r.DescribeAll()
	specs := make([]types.ToolSpec, len(descs))
	for i, d := range descs {
		specs[i] = types.ToolSpec{Name: d.Name, Description: d.Description, Parameters: d.InputSchema}
	}
	return specs
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute runs a tool and returns its text output. Failures reported by
// the tool itself wrap types.ErrToolExecution.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	desc, err := r.Resolve(name)
	if err != nil {
		return "", err
	}

	start := time.Now()
	logger := r.logger.With(zap.String("tool", name), zap.Stringer("binding", desc.Binding.Kind))
	logger.Debug("executing tool")

	var out string
	switch desc.Binding.Kind {
	case BindingBuiltIn:
		out, err = runBuiltIn(ctx, desc.Binding.Tool, args)
	case BindingRemote:
		out, err = desc.Binding.Caller.CallTool(ctx, desc.Binding.Server, desc.Binding.RemoteTool, args)
	default:
		err = fmt.Errorf("tool %s: unknown binding %d", name, desc.Binding.Kind)
	}

	if err != nil {
		logger.Debug("tool failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	logger.Debug("tool finished", zap.Duration("elapsed", time.Since(start)), zap.Int("output_bytes", len(out)))
	return out, nil
}

func runBuiltIn(ctx context.Context, tool Tool, args map[string]interface{}) (string, error) {
	res, err := tool.Execute(ctx, args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrToolExecution, err)
	}
	if res == nil {
		return "", nil
	}
	if !res.Success {
		msg := "tool failed"
		if res.Error != nil {
			msg = res.Error.Error()
		}
		return res.Output, fmt.Errorf("%w: %s", types.ErrToolExecution, msg)
	}
	return res.Output, nil
}

func (r *Registry) serverRank(server string) int {
	if rank, ok := r.servers[server]; ok {
		return rank
	}
	return len(r.servers)
}

// suggest returns the closest registered name, or "".
func (r *Registry) suggest(name string) string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)

	patterns := []string{name}
	if i := strings.Index(name, "_"); i > 0 && i < len(name)-1 {
		patterns = append(patterns, name[i+1:])
	}
	for _, p := range patterns {
		if matches := fuzzy.Find(p, names); len(matches) > 0 {
			return matches[0].Str
		}
	}
	return ""
}

func origin(d Descriptor) string {
	if d.Binding.Kind == BindingRemote {
		return "server " + d.Binding.Server
	}
	return "built-in"
}
