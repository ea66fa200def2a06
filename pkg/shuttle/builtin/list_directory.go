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
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/teradata-labs/ask/pkg/shuttle"
)

// ListDirectoryTool lists the entries of a directory.
type ListDirectoryTool struct {
	baseDir string
}

// NewListDirectoryTool creates the list_directory tool.
func NewListDirectoryTool(baseDir string) *ListDirectoryTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &ListDirectoryTool{baseDir: baseDir}
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "List the files and subdirectories of a directory"
}

func (t *ListDirectoryTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for listing a directory",
		map[string]*shuttle.JSONSchema{
			"path": shuttle.NewStringSchema("Directory to list (default: current directory)"),
		},
		nil,
	)
}

// Execute lists one entry per line, sorted by name. Directories end in a
// slash.
func (t *ListDirectoryTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}
	path = resolvePath(t.baseDir, path)

	entries, err := os.ReadDir(path)
	if err != nil {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "LIST_FAILED", Message: err.Error()},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	if len(entries) == 0 {
		return &shuttle.Result{
			Success:         true,
			Output:          fmt.Sprintf("%s is empty", path),
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Name())
		if e.IsDir() {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
	}

	return &shuttle.Result{
		Success:         true,
		Output:          strings.TrimSuffix(b.String(), "\n"),
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}
