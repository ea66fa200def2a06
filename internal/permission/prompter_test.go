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
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	tests := map[string]Answer{
		"y\n":      AnswerOnce,
		"YES":      AnswerOnce,
		" a ":      AnswerAlways,
		"all\r\n":  AnswerAlways,
		"Always":   AnswerAlways,
		"":         AnswerDeny,
		"n":        AnswerDeny,
		"whatever": AnswerDeny,
	}
	for input, want := range tests {
		assert.Equal(t, want, ParseAnswer(input), "input %q", input)
	}
}

func TestTerminalPrompter_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewTerminalPrompter(strings.NewReader("y\na\nno\n"), &out, false)
	req := Request{Tool: "execute_command", Arguments: map[string]interface{}{"command": "git status"}}

	for _, want := range []Answer{AnswerOnce, AnswerAlways, AnswerDeny} {
		got, err := p.Ask(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Contains(t, out.String(), "git status\nExecute 'execute_command'? [y/N/A]: ")

	// Input exhausted: EOF denies, and keeps denying.
	for i := 0; i < 2; i++ {
		got, err := p.Ask(context.Background(), req)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, AnswerDeny, got)
	}
}

func TestTerminalPrompter_CancelWhileWaiting(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	p := NewTerminalPrompter(in, io.Discard, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := p.Ask(ctx, Request{Tool: "git_push", Remote: true})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, AnswerDeny, got)

	// A line typed after the cancel answers the next prompt.
	go func() { _, _ = w.Write([]byte("y\n")) }()
	got, err = p.Ask(context.Background(), Request{Tool: "git_push", Remote: true})
	require.NoError(t, err)
	assert.Equal(t, AnswerOnce, got)
}

func TestTerminalPrompter_Notify(t *testing.T) {
	var out bytes.Buffer
	req := Request{Tool: "execute_command", Arguments: map[string]interface{}{"command": "ls"}}

	NewTerminalPrompter(strings.NewReader(""), &out, true).Notify(req, AutoApproved)
	assert.Equal(t, "ls\n[Auto-approved]\n", out.String())

	out.Reset()
	NewTerminalPrompter(strings.NewReader(""), &out, false).Notify(req, AutoApproved)
	assert.Equal(t, "ls\n", out.String())
}

func TestDescribe(t *testing.T) {
	remote := Describe(Request{Tool: "git_log", Remote: true, Arguments: map[string]interface{}{"max": 3}}, 120)
	assert.Equal(t, "Executing git_log\nArguments:\n{\n  \"max\": 3\n}", remote)

	empty := Describe(Request{Tool: "git_status", Remote: true}, 120)
	assert.Equal(t, "Executing git_status\nArguments:\n{}", empty)

	cmd := Describe(Request{Tool: "execute_command", Arguments: map[string]interface{}{
		"command": "make test", "working_directory": "/src",
	}}, 120)
	assert.Equal(t, "make test (in /src)", cmd)

	long := Describe(Request{Tool: "execute_command", Arguments: map[string]interface{}{"command": strings.Repeat("x", 50)}}, 10)
	assert.Equal(t, "xxxxxxx...", long)
}
