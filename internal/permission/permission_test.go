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

package permission

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/ask/internal/config"
	"go.uber.org/zap/zaptest"
)

// memStore is an ApprovalStore that counts writes.
type memStore struct {
	mu      sync.Mutex
	tools   []string
	saves   int
	saveErr error
}

func (s *memStore) LoadApproved() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tools...), nil
}

func (s *memStore) AddApproved(tool string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	if !slices.Contains(s.tools, tool) {
		s.tools = append(s.tools, tool)
		slices.Sort(s.tools)
	}
	return nil
}

// scripted answers prompts from a queue and records what it was asked.
type scripted struct {
	answers []Answer
	err     error
	asked   []string
	noted   []string
}

func (s *scripted) Ask(_ context.Context, req Request) (Answer, error) {
	s.asked = append(s.asked, req.Tool)
	if s.err != nil {
		return AnswerDeny, s.err
	}
	if len(s.answers) == 0 {
		return AnswerDeny, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scripted) Notify(req Request, state State) {
	s.noted = append(s.noted, req.Tool+":"+state.String())
}

func newGate(t *testing.T, store ApprovalStore, p Prompter) *Gate {
	t.Helper()
	g, err := NewGate(Config{Store: store, Prompter: p, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return g
}

func TestGate_ApproveOncePromptsAgainNextRun(t *testing.T) {
	store := &memStore{}
	req := Request{Tool: "git_status", Remote: true}

	p1 := &scripted{answers: []Answer{AnswerOnce}}
	d := newGate(t, store, p1).Check(context.Background(), req)
	assert.True(t, d.Allowed())
	assert.Equal(t, Approved, d.State)
	assert.Equal(t, []string{"git_status"}, p1.asked)
	assert.Zero(t, store.saves)

	p2 := &scripted{answers: []Answer{AnswerOnce}}
	d = newGate(t, store, p2).Check(context.Background(), req)
	assert.True(t, d.Allowed())
	assert.Equal(t, []string{"git_status"}, p2.asked, "approve-once must not survive the run")
}

func TestGate_ApproveOnceDoesNotCoverSecondCall(t *testing.T) {
	p := &scripted{answers: []Answer{AnswerOnce, AnswerDeny}}
	g := newGate(t, &memStore{}, p)
	req := Request{Tool: "execute_command"}

	assert.True(t, g.Check(context.Background(), req).Allowed())
	d := g.Check(context.Background(), req)
	assert.False(t, d.Allowed())
	assert.Len(t, p.asked, 2)
}

func TestGate_ApproveAlwaysPersists(t *testing.T) {
	store := &memStore{tools: []string{"read_file"}}
	req := Request{Tool: "git_status", Remote: true}

	p1 := &scripted{answers: []Answer{AnswerAlways}}
	g := newGate(t, store, p1)
	d := g.Check(context.Background(), req)
	assert.Equal(t, Approved, d.State)
	assert.True(t, d.Persisted)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, []string{"git_status", "read_file"}, store.tools)

	// Same run: no prompt.
	d = g.Check(context.Background(), req)
	assert.Equal(t, AutoApproved, d.State)
	assert.Len(t, p1.asked, 1)
	assert.Equal(t, []string{"git_status:auto-approved"}, p1.noted)

	// Next run, reloaded from the store: no prompt.
	p2 := &scripted{}
	d = newGate(t, store, p2).Check(context.Background(), req)
	assert.Equal(t, AutoApproved, d.State)
	assert.Empty(t, p2.asked)
}

func TestGate_ReapprovingDurableToolDoesNotWrite(t *testing.T) {
	store := &memStore{tools: []string{"git_status"}}
	g := newGate(t, store, &scripted{})

	logger := zaptest.NewLogger(t)
	assert.False(t, g.approveAlways("git_status", logger))
	assert.Zero(t, store.saves)
	assert.Equal(t, []string{"git_status"}, g.Durable())
}

// Two runs that loaded the file before either approved must not drop
// each other's approvals.
func TestGate_ConcurrentRunsKeepBothApprovals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")

	g1 := newGate(t, config.NewStore(path), &scripted{answers: []Answer{AnswerAlways}})
	g2 := newGate(t, config.NewStore(path), &scripted{answers: []Answer{AnswerAlways}})

	require.True(t, g1.Check(context.Background(), Request{Tool: "git_status", Remote: true}).Persisted)
	require.True(t, g2.Check(context.Background(), Request{Tool: "execute_command"}).Persisted)

	approved, err := config.NewStore(path).LoadApproved()
	require.NoError(t, err)
	assert.Equal(t, []string{"execute_command", "git_status"}, approved)
}

func TestGate_PersistFailureKeepsSessionApproval(t *testing.T) {
	store := &memStore{saveErr: errors.New("read-only file system")}
	p := &scripted{answers: []Answer{AnswerAlways}}
	g := newGate(t, store, p)
	req := Request{Tool: "execute_command"}

	d := g.Check(context.Background(), req)
	assert.Equal(t, Approved, d.State)
	assert.False(t, d.Persisted)
	assert.Empty(t, g.Durable())

	assert.Equal(t, AutoApproved, g.Check(context.Background(), req).State)
	assert.Len(t, p.asked, 1)
}

func TestGate_DenyMessages(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		p    *scripted
		want string
	}{
		{name: "built-in", req: Request{Tool: "execute_command"}, p: &scripted{answers: []Answer{AnswerDeny}}, want: "Command execution canceled by user."},
		{name: "remote", req: Request{Tool: "git_push", Remote: true}, p: &scripted{answers: []Answer{AnswerDeny}}, want: "MCP tool execution canceled by user."},
		{name: "prompt error", req: Request{Tool: "git_push", Remote: true}, p: &scripted{err: context.Canceled}, want: "MCP tool execution canceled by user."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newGate(t, &memStore{}, tt.p).Check(context.Background(), tt.req)
			assert.Equal(t, Denied, d.State)
			assert.False(t, d.Allowed())
			assert.Equal(t, tt.want, d.Message)
		})
	}
}

func TestNewGate(t *testing.T) {
	_, err := NewGate(Config{})
	assert.Error(t, err)

	g, err := NewGate(Config{Prompter: &scripted{answers: []Answer{AnswerAlways}}})
	require.NoError(t, err)
	d := g.Check(context.Background(), Request{Tool: "list_directory"})
	assert.True(t, d.Allowed())
	assert.False(t, d.Persisted)
	assert.True(t, g.IsApproved("list_directory"))
}
