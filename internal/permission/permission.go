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

// Package permission decides whether a tool call may run. Every call is
// checked against the durable approval set from the config file and the
// approvals granted during this run; anything else asks the operator.
package permission

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// State is where a single invocation ended up.
type State int

const (
	Requested State = iota
	AutoApproved
	AwaitingOperator
	Approved
	Denied
)

func (s State) String() string {
	switch s {
	case Requested:
		return "requested"
	case AutoApproved:
		return "auto-approved"
	case AwaitingOperator:
		return "awaiting-operator"
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Answer is the operator's reply to a prompt.
type Answer int

const (
	// AnswerDeny is the default for anything unrecognised.
	AnswerDeny Answer = iota
	AnswerOnce
	AnswerAlways
)

// Request describes one tool invocation awaiting a decision.
type Request struct {
	// Tool is the fully qualified tool name.
	Tool string

	// Remote is set for tools served by an MCP server.
	Remote bool

	Arguments map[string]interface{}
}

// Prompter asks the operator about a request.
type Prompter interface {
	Ask(ctx context.Context, req Request) (Answer, error)
}

// Notifier is implemented by prompters that also want to show requests
// that did not need a prompt.
type Notifier interface {
	Notify(req Request, state State)
}

// ApprovalStore persists the durable approval set.
type ApprovalStore interface {
	LoadApproved() ([]string, error)
	// AddApproved merges one tool into the persisted set.
	AddApproved(tool string) error
}

// Decision is the outcome of Check.
type Decision struct {
	State State

	// Message is the tool result to hand back when the call is denied.
	Message string

	// Persisted is set when this decision wrote the durable set.
	Persisted bool
}

// Allowed reports whether the tool may run.
func (d Decision) Allowed() bool {
	return d.State == AutoApproved || d.State == Approved
}

// Config configures a Gate.
type Config struct {
	Store    ApprovalStore
	Prompter Prompter
	Logger   *zap.Logger
}

// Gate mediates every tool invocation.
type Gate struct {
	store    ApprovalStore
	prompter Prompter
	logger   *zap.Logger

	mu      sync.Mutex
	durable map[string]bool
	session map[string]bool

	// promptMu keeps prompts from interleaving on the terminal.
	promptMu sync.Mutex
}

// NewGate loads the durable set from the store.
func NewGate(config Config) (*Gate, error) {
	if config.Prompter == nil {
		return nil, fmt.Errorf("permission gate requires a prompter")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	g := &Gate{
		store:    config.Store,
		prompter: config.Prompter,
		logger:   config.Logger,
		durable:  make(map[string]bool),
		session:  make(map[string]bool),
	}

	if g.store != nil {
		tools, err := g.store.LoadApproved()
		if err != nil {
			return nil, fmt.Errorf("load approved tools: %w", err)
		}
		for _, t := range tools {
			g.durable[t] = true
		}
	}
	return g, nil
}

// DeniedMessage is the tool result the model sees for a refused call.
func DeniedMessage(remote bool) string {
	if remote {
		return "MCP tool execution canceled by user."
	}
	return "Command execution canceled by user."
}

// Check decides a request, prompting the operator when the tool is not
// already approved. A prompt that fails or is canceled counts as a deny.
func (g *Gate) Check(ctx context.Context, req Request) Decision {
	logger := g.logger.With(zap.String("tool", req.Tool))

	if g.IsApproved(req.Tool) {
		logger.Debug("tool auto-approved")
		if n, ok := g.prompter.(Notifier); ok {
			n.Notify(req, AutoApproved)
		}
		return Decision{State: AutoApproved}
	}

	g.promptMu.Lock()
	answer, err := g.prompter.Ask(ctx, req)
	g.promptMu.Unlock()

	if err != nil {
		logger.Debug("approval prompt failed, denying", zap.Error(err))
		answer = AnswerDeny
	}

	switch answer {
	case AnswerOnce:
		logger.Debug("tool approved once")
		return Decision{State: Approved}
	case AnswerAlways:
		persisted := g.approveAlways(req.Tool, logger)
		return Decision{State: Approved, Persisted: persisted}
	default:
		logger.Debug("tool denied")
		return Decision{State: Denied, Message: DeniedMessage(req.Remote)}
	}
}

// IsApproved reports whether a tool runs without a prompt.
func (g *Gate) IsApproved(tool string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.durable[tool] || g.session[tool]
}

// Durable returns the durable set, sorted.
func (g *Gate) Durable() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.durable)
}

// approveAlways records the tool in both sets. The durable write finishes
// before it returns; a write failure keeps the session approval.
func (g *Gate) approveAlways(tool string, logger *zap.Logger) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session[tool] = true
	if g.durable[tool] {
		return false
	}
	if g.store == nil {
		logger.Debug("tool approved for this session only")
		return false
	}

	if err := g.store.AddApproved(tool); err != nil {
		logger.Warn("failed to save auto-approval, approved for this session only", zap.Error(err))
		return false
	}
	g.durable[tool] = true
	logger.Info("tool auto-approved from now on")
	return true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
