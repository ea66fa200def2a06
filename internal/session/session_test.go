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

package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/ask/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("ASK_DB_KEY", "")
	s, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "sessions.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func conversation() []types.Message {
	return []types.Message{
		types.NewMessage(types.RoleSystem, "system prompt"),
		types.NewMessage(types.RoleUser, "list files"),
		{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:    "call_1",
				Name:  "execute_command",
				Input: map[string]interface{}{"command": "ls", "working_directory": "."},
			}},
		},
		types.NewToolResult("call_1", "a.txt\nb.txt"),
		types.NewMessage(types.RoleAssistant, "Two files."),
	}
}

func TestStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "work", conversation()))

	msgs, err := s.Load(ctx, "work")
	require.NoError(t, err)
	require.Len(t, msgs, 4, "system messages are not stored")

	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "list files", msgs[0].Content)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, "ls", msgs[1].ToolCalls[0].Input["command"])
	assert.Equal(t, "call_1", msgs[2].ToolUseID)
	assert.Equal(t, "Two files.", msgs[3].Content)

	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "work", last)
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "", conversation()))
	require.NoError(t, s.Save(ctx, DefaultName, []types.Message{types.NewMessage(types.RoleUser, "again")}))

	msgs, err := s.Load(ctx, DefaultName)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "again", msgs[0].Content)
}

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Last(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	require.NoError(t, s.Save(ctx, "older", conversation()))
	clock = base.Add(time.Hour)
	require.NoError(t, s.Save(ctx, "newer", conversation()[:2]))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)
	assert.Equal(t, 1, list[0].MessageCount)
	assert.Equal(t, "older", list[1].Name)
	assert.Equal(t, 4, list[1].MessageCount)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEqual(t, list[0].ID, list[1].ID)
}

func TestStore_CopyAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, DefaultName, conversation()))
	require.NoError(t, s.Copy(ctx, DefaultName, "keep"))

	msgs, err := s.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	last, err := s.Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "keep", last)

	require.NoError(t, s.Delete(ctx, "keep"))
	_, err = s.Load(ctx, "keep")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Last(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "keep"), ErrNotFound)
	assert.ErrorIs(t, s.Copy(ctx, "missing", "x"), ErrNotFound)
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	t.Setenv("ASK_DB_KEY", "")
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "kept", conversation()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer s.Close()

	msgs, err := s.Load(ctx, "kept")
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{3 * time.Hour, "3 hours ago"},
		{48 * time.Hour, "2 days ago"},
		{30 * 24 * time.Hour, "2026-02-08 12:00"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeTime(now.Add(-tt.ago), now))
		})
	}
}
