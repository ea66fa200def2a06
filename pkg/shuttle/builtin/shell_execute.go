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

package builtin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/teradata-labs/ask/pkg/shuttle"
)

// DefaultCommandTimeout bounds a single execute_command run.
const DefaultCommandTimeout = 5 * time.Minute

// ExecuteCommandTool runs a command line through the platform shell.
type ExecuteCommandTool struct {
	timeout   time.Duration
	shellKind string
}

// NewExecuteCommandTool creates the execute_command tool. A zero timeout
// uses DefaultCommandTimeout.
func NewExecuteCommandTool(timeout time.Duration) *ExecuteCommandTool {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &ExecuteCommandTool{timeout: timeout, shellKind: DetectShellKind()}
}

func (t *ExecuteCommandTool) Name() string {
	return "execute_command"
}

func (t *ExecuteCommandTool) Description() string {
	return "Execute a command on the Operating System"
}

func (t *ExecuteCommandTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for command execution",
		map[string]*shuttle.JSONSchema{
			"command":           shuttle.NewStringSchema("The command to be executed"),
			"working_directory": shuttle.NewStringSchema("The working directory for the command execution (optional)"),
		},
		[]string{"command", "working_directory"},
	)
}

// Execute runs the command. A non-zero exit is not a tool failure: the
// model sees whatever the command printed.
func (t *ExecuteCommandTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	command, _ := params["command"].(string)
	if command == "" {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "command is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	dir, _ := params["working_directory"].(string)
	if dir != "" {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return &shuttle.Result{
				Error:           &shuttle.Error{Code: "INVALID_WORKDIR", Message: fmt.Sprintf("not a directory: %s", dir)},
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	shell, flag := shellCommand(t.shellKind, runtime.GOOS)
	cmd := exec.CommandContext(ctx, shell, flag, command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case ctx.Err() == context.DeadlineExceeded:
			return &shuttle.Result{
				Output:          formatOutput(stdout.String(), stderr.String()),
				Error:           &shuttle.Error{Code: "TIMEOUT", Message: fmt.Sprintf("command timed out after %s", t.timeout)},
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}, nil
		case errors.As(err, &exitErr):
		default:
			return &shuttle.Result{
				Error:           &shuttle.Error{Code: "EXECUTION_FAILED", Message: fmt.Sprintf("failed to execute command '%s': %v", command, err)},
				ExecutionTimeMs: time.Since(start).Milliseconds(),
			}, nil
		}
	}

	return &shuttle.Result{
		Success:         true,
		Output:          formatOutput(stdout.String(), stderr.String()),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func formatOutput(stdout, stderr string) string {
	if stderr == "" {
		if stdout == "" {
			return "Executed"
		}
		return stdout
	}
	return fmt.Sprintf("stdout:\n%s\n---\nstderr:\n%s", stdout, stderr)
}
