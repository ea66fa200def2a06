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

package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/ask/internal/config"
	"github.com/teradata-labs/ask/internal/permission"
	"github.com/teradata-labs/ask/pkg/mcp/adapter"
	"github.com/teradata-labs/ask/pkg/mcp/manager"
	"github.com/teradata-labs/ask/pkg/mcp/mcptest"
	"github.com/teradata-labs/ask/pkg/mcp/transport"
	"github.com/teradata-labs/ask/pkg/shuttle"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap/zaptest"
)

// scriptedProvider answers each Chat with the next step of a script.
type scriptedProvider struct {
	mu    sync.Mutex
	calls int
	seen  [][]types.Message
	step  func(call int, msgs []types.Message) (*types.LLMResponse, error)
}

func (p *scriptedProvider) Chat(_ context.Context, msgs []types.Message, _ []types.ToolSpec) (*types.LLMResponse, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.seen = append(p.seen, append([]types.Message(nil), msgs...))
	p.mu.Unlock()
	return p.step(call, msgs)
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func toolUse(calls ...types.ToolCall) *types.LLMResponse {
	return &types.LLMResponse{ToolCalls: calls, StopReason: types.StopToolUse}
}

func answer(text string) *types.LLMResponse {
	return &types.LLMResponse{Content: text, StopReason: types.StopEndTurn}
}

func call(id, name string) types.ToolCall {
	return types.ToolCall{ID: id, Name: name, Input: map[string]interface{}{}}
}

// scriptedPrompter answers prompts in order and records what it was asked.
type scriptedPrompter struct {
	mu      sync.Mutex
	answers []permission.Answer
	asked   []string
}

func (p *scriptedPrompter) Ask(_ context.Context, req permission.Request) (permission.Answer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, req.Tool)
	if len(p.answers) == 0 {
		return permission.AnswerDeny, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) Asked() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.asked...)
}

func newGate(t *testing.T, store permission.ApprovalStore, answers ...permission.Answer) (*permission.Gate, *scriptedPrompter) {
	t.Helper()
	p := &scriptedPrompter{answers: answers}
	g, err := permission.NewGate(permission.Config{Store: store, Prompter: p, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return g, p
}

func newAgent(t *testing.T, provider types.LLMProvider, registry *shuttle.Registry, gate Gate, maxRounds int) *Agent {
	t.Helper()
	a, err := New(Config{
		Provider:     provider,
		Registry:     registry,
		Gate:         gate,
		Logger:       zaptest.NewLogger(t),
		SystemPrompt: "system",
		MaxRounds:    maxRounds,
		Retry:        RetryConfig{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	require.NoError(t, err)
	return a
}

func mockRegistry(t *testing.T, tools ...*shuttle.MockTool) *shuttle.Registry {
	t.Helper()
	r := shuttle.NewRegistry(zaptest.NewLogger(t))
	for _, tool := range tools {
		require.NoError(t, r.Register(shuttle.BuiltIn(tool)))
	}
	return r
}

func toolResults(msgs []types.Message) []types.Message {
	var out []types.Message
	for _, m := range msgs {
		if m.Role == types.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{Provider: &scriptedProvider{}})
	assert.Error(t, err)
	_, err = New(Config{Provider: &scriptedProvider{}, Registry: shuttle.NewRegistry(nil)})
	assert.Error(t, err)
}

func TestRun_FinalAnswer(t *testing.T) {
	provider := &scriptedProvider{step: func(int, []types.Message) (*types.LLMResponse, error) {
		return answer("42"), nil
	}}
	gate, _ := newGate(t, nil)
	a := newAgent(t, provider, mockRegistry(t), gate, 0)

	history := []types.Message{
		types.NewMessage(types.RoleSystem, "stale prompt"),
		types.NewMessage(types.RoleUser, "earlier"),
		types.NewMessage(types.RoleAssistant, "reply"),
	}
	resp, err := a.Run(context.Background(), history, "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, "42", resp.Content)
	assert.Equal(t, 1, resp.Rounds)

	roles := make([]string, len(resp.Messages))
	for i, m := range resp.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user", "assistant"}, roles)
	assert.Equal(t, "system", resp.Messages[0].Content, "history system prompts are replaced")
}

func TestRun_EveryCallGetsOneResult(t *testing.T) {
	read := &shuttle.MockTool{MockName: "read_file"}
	list := &shuttle.MockTool{MockName: "list_directory", MockExecute: func(context.Context, map[string]interface{}) (*shuttle.Result, error) {
		return &shuttle.Result{Success: false, Error: &shuttle.Error{Code: "LIST_FAILED", Message: "no such directory"}}, nil
	}}

	provider := &scriptedProvider{step: func(n int, msgs []types.Message) (*types.LLMResponse, error) {
		if n == 1 {
			return toolUse(call("c1", "read_file"), call("c2", "list_directry"), call("c3", "list_directory"), call("c4", "read_file")), nil
		}
		return answer("done"), nil
	}}
	gate, prompter := newGate(t, nil, permission.AnswerOnce, permission.AnswerOnce, permission.AnswerOnce)
	a := newAgent(t, provider, mockRegistry(t, read, list), gate, 0)

	resp, err := a.Run(context.Background(), nil, "look around")
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, 2, resp.Rounds)
	assert.Equal(t, 4, resp.ToolCalls)

	results := toolResults(resp.Messages)
	require.Len(t, results, 4)
	for i, id := range []string{"c1", "c2", "c3", "c4"} {
		assert.Equal(t, id, results[i].ToolUseID)
	}
	assert.Equal(t, "mock result", results[0].Content)
	assert.True(t, strings.HasPrefix(results[1].Content, "Error: tool not found"), results[1].Content)
	assert.Contains(t, results[1].Content, "did you mean list_directory?")
	assert.Equal(t, "Error: tool execution error: LIST_FAILED: no such directory", results[2].Content)
	assert.Equal(t, "mock result", results[3].Content)

	// The unknown tool is never put to the operator.
	assert.Equal(t, []string{"read_file", "list_directory", "read_file"}, prompter.Asked())

	// The second request carries every result.
	require.Len(t, provider.seen, 2)
	assert.Len(t, toolResults(provider.seen[1]), 4)
}

func TestRun_MaxRoundsExhausted(t *testing.T) {
	tool := &shuttle.MockTool{MockName: "spin"}
	provider := &scriptedProvider{step: func(n int, _ []types.Message) (*types.LLMResponse, error) {
		return toolUse(call(fmt.Sprintf("c%d", n), "spin")), nil
	}}
	gate, _ := newGate(t, nil, permission.AnswerAlways)
	a := newAgent(t, provider, mockRegistry(t, tool), gate, 4)

	resp, err := a.Run(context.Background(), nil, "loop forever")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrResourceExhausted)
	require.NotNil(t, resp)
	assert.Equal(t, 4, provider.Calls())
	assert.Equal(t, 4, resp.Rounds)
	assert.Equal(t, 4, tool.Calls())
	assert.Len(t, toolResults(resp.Messages), 4)
}

func TestRun_DeniedCallIsBenign(t *testing.T) {
	tool := &shuttle.MockTool{MockName: "execute_command"}
	provider := &scriptedProvider{step: func(n int, _ []types.Message) (*types.LLMResponse, error) {
		if n == 1 {
			return toolUse(call("c1", "execute_command")), nil
		}
		return answer("ok, not running it"), nil
	}}
	gate, _ := newGate(t, nil, permission.AnswerDeny)
	a := newAgent(t, provider, mockRegistry(t, tool), gate, 0)

	resp, err := a.Run(context.Background(), nil, "rm -rf")
	require.NoError(t, err)

	results := toolResults(resp.Messages)
	require.Len(t, results, 1)
	assert.Equal(t, "Command execution canceled by user.", results[0].Content)
	assert.Zero(t, tool.Calls())
}

func TestRun_MalformedArgumentsAreNotRun(t *testing.T) {
	tool := &shuttle.MockTool{MockName: "read_file"}
	provider := &scriptedProvider{step: func(n int, _ []types.Message) (*types.LLMResponse, error) {
		if n == 1 {
			return toolUse(types.ToolCall{ID: "c1", Name: "read_file", Input: map[string]interface{}{"_raw": `{"path":`}}), nil
		}
		return answer("sorry"), nil
	}}
	gate, prompter := newGate(t, nil)
	a := newAgent(t, provider, mockRegistry(t, tool), gate, 0)

	resp, err := a.Run(context.Background(), nil, "read")
	require.NoError(t, err)
	results := toolResults(resp.Messages)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Content, "not a valid JSON object")
	assert.Empty(t, prompter.Asked())
	assert.Zero(t, tool.Calls())
}

func TestRun_InterruptFinishesCurrentCallAndSkipsRest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sawCanceled bool
	first := &shuttle.MockTool{MockName: "first", MockExecute: func(ctx context.Context, _ map[string]interface{}) (*shuttle.Result, error) {
		cancel()
		sawCanceled = ctx.Err() != nil
		return &shuttle.Result{Success: true, Output: "finished"}, nil
	}}
	second := &shuttle.MockTool{MockName: "second"}

	provider := &scriptedProvider{step: func(int, []types.Message) (*types.LLMResponse, error) {
		return toolUse(call("c1", "first"), call("c2", "second")), nil
	}}
	gate, _ := newGate(t, nil, permission.AnswerAlways, permission.AnswerAlways)
	a := newAgent(t, provider, mockRegistry(t, first, second), gate, 0)

	resp, err := a.Run(ctx, nil, "go")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, sawCanceled, "the running tool must not see the interruption")
	assert.Equal(t, 1, provider.Calls())

	results := toolResults(resp.Messages)
	require.Len(t, results, 2)
	assert.Equal(t, "finished", results[0].Content)
	assert.Equal(t, "c2", results[1].ToolUseID)
	assert.Equal(t, SkippedMessage, results[1].Content)
	assert.Zero(t, second.Calls())
}

func TestRun_RetriesTransientModelErrors(t *testing.T) {
	provider := &scriptedProvider{step: func(n int, _ []types.Message) (*types.LLMResponse, error) {
		if n < 3 {
			return nil, &types.APIError{StatusCode: 503, Message: "overloaded"}
		}
		return answer("finally"), nil
	}}
	gate, _ := newGate(t, nil)
	a := newAgent(t, provider, mockRegistry(t), gate, 0)

	resp, err := a.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Content)
	assert.Equal(t, 3, provider.Calls())
	assert.Equal(t, 1, resp.Rounds)
}

func TestRun_DoesNotRetryAuthErrors(t *testing.T) {
	provider := &scriptedProvider{step: func(int, []types.Message) (*types.LLMResponse, error) {
		return nil, &types.APIError{StatusCode: 401, Message: "bad key"}
	}}
	gate, _ := newGate(t, nil)
	a := newAgent(t, provider, mockRegistry(t), gate, 0)

	resp, err := a.Run(context.Background(), nil, "hi")
	require.Error(t, err)
	var apiErr *types.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.StatusCode)
	assert.Equal(t, 1, provider.Calls())
	assert.Len(t, resp.Messages, 2)
}

func TestRun_GivesUpAfterMaxTries(t *testing.T) {
	provider := &scriptedProvider{step: func(int, []types.Message) (*types.LLMResponse, error) {
		return nil, &types.APIError{StatusCode: 429, Message: "slow down"}
	}}
	gate, _ := newGate(t, nil)
	a := newAgent(t, provider, mockRegistry(t), gate, 0)

	_, err := a.Run(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.Equal(t, 3, provider.Calls())
}

// statusFleet starts one in-memory "git" server exposing "status".
func statusFleet(t *testing.T, launchErr error) (*manager.Manager, *shuttle.Registry) {
	t.Helper()
	mgr, err := manager.NewManager(manager.Config{
		Servers: []manager.ServerConfig{{Name: "git", Command: "git-mcp"}},
		Logger:  zaptest.NewLogger(t),
		NewTransport: func(manager.ServerConfig) (transport.Transport, error) {
			if launchErr != nil {
				return nil, launchErr
			}
			return mcptest.NewServer("git").AddTextTool("status", "working tree clean"), nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(mgr.Stop)

	registry := shuttle.NewRegistry(zaptest.NewLogger(t))
	registry.RegisterTools(&shuttle.MockTool{MockName: "execute_command"})
	_, errs := adapter.RegisterServerTools(registry, mgr)
	require.Empty(t, errs)
	return mgr, registry
}

func statusProvider(tool string) *scriptedProvider {
	return &scriptedProvider{step: func(n int, msgs []types.Message) (*types.LLMResponse, error) {
		if msgs[len(msgs)-1].Role == types.RoleUser {
			return toolUse(call(fmt.Sprintf("c%d", n), tool)), nil
		}
		return answer(msgs[len(msgs)-1].Content), nil
	}}
}

// Approve-once does not carry over to the next run.
func TestScenario_ApproveOncePromptsAgain(t *testing.T) {
	_, registry := statusFleet(t, nil)
	store := config.NewStore(filepath.Join(t.TempDir(), "config"))

	for run := 0; run < 2; run++ {
		gate, prompter := newGate(t, store, permission.AnswerOnce)
		a := newAgent(t, statusProvider("git_status"), registry, gate, 0)

		resp, err := a.Run(context.Background(), nil, "git status?")
		require.NoError(t, err)
		assert.Equal(t, "working tree clean", resp.Content)
		assert.Equal(t, []string{"git_status"}, prompter.Asked(), "run %d", run)
	}

	approved, err := store.LoadApproved()
	require.NoError(t, err)
	assert.Empty(t, approved)
	assert.False(t, store.Exists(), "approve-once writes nothing")
}

// Approve-always is persisted and honored by a later run without a prompt.
func TestScenario_ApproveAlwaysPersists(t *testing.T) {
	_, registry := statusFleet(t, nil)
	store := config.NewStore(filepath.Join(t.TempDir(), "config"))

	gate, prompter := newGate(t, store, permission.AnswerAlways)
	resp, err := newAgent(t, statusProvider("git_status"), registry, gate, 0).Run(context.Background(), nil, "git status?")
	require.NoError(t, err)
	assert.Equal(t, "working tree clean", resp.Content)
	assert.Equal(t, []string{"git_status"}, prompter.Asked())

	approved, err := store.LoadApproved()
	require.NoError(t, err)
	assert.Equal(t, []string{"git_status"}, approved)

	// A fresh gate reloads the durable set.
	gate, prompter = newGate(t, store)
	resp, err = newAgent(t, statusProvider("git_status"), registry, gate, 0).Run(context.Background(), nil, "git status again?")
	require.NoError(t, err)
	assert.Equal(t, "working tree clean", resp.Content)
	assert.Empty(t, prompter.Asked())
}

// A server that fails to launch leaves the built-ins usable.
func TestScenario_UnavailableServer(t *testing.T) {
	mgr, registry := statusFleet(t, fmt.Errorf("%w: git-mcp: executable file not found", types.ErrLaunch))

	statuses := mgr.Statuses()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].Running)
	assert.ErrorIs(t, statuses[0].Err, types.ErrLaunch)

	_, err := registry.Resolve("git_status")
	assert.ErrorIs(t, err, types.ErrToolNotFound)

	gate, _ := newGate(t, nil, permission.AnswerOnce)
	resp, err := newAgent(t, statusProvider("execute_command"), registry, gate, 0).Run(context.Background(), nil, "status?")
	require.NoError(t, err)
	assert.Equal(t, "mock result", resp.Content)
}

func TestRun_RemoteDenialMessage(t *testing.T) {
	_, registry := statusFleet(t, nil)
	gate, _ := newGate(t, nil, permission.AnswerDeny)

	resp, err := newAgent(t, statusProvider("git_status"), registry, gate, 0).Run(context.Background(), nil, "status?")
	require.NoError(t, err)
	assert.Equal(t, "MCP tool execution canceled by user.", resp.Content)
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt("Powershell", time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	assert.Contains(t, p, "compatible with Powershell")
	assert.Contains(t, p, "Today's date is 2026-05-04.")
}
