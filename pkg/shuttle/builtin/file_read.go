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
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/teradata-labs/ask/pkg/shuttle"
)

// DefaultMaxReadBytes caps read_file output when max_bytes is not given.
const DefaultMaxReadBytes = 256 * 1024

// FileReadTool reads a text file.
type FileReadTool struct {
	baseDir string
}

// NewFileReadTool creates the read_file tool. Relative paths resolve
// against baseDir, or the working directory when empty.
func NewFileReadTool(baseDir string) *FileReadTool {
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &FileReadTool{baseDir: baseDir}
}

func (t *FileReadTool) Name() string {
	return "read_file"
}

func (t *FileReadTool) Description() string {
	return "Read the contents of a text file"
}

func (t *FileReadTool) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for reading a file",
		map[string]*shuttle.JSONSchema{
			"path":      shuttle.NewStringSchema("Path of the file to read"),
			"max_bytes": shuttle.NewNumberSchema(fmt.Sprintf("Maximum bytes to return (default %d)", DefaultMaxReadBytes)),
		},
		[]string{"path"},
	)
}

func (t *FileReadTool) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	start := time.Now()

	path, _ := params["path"].(string)
	if path == "" {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "INVALID_PARAMS", Message: "path is required"},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	maxBytes := int64(DefaultMaxReadBytes)
	if m, ok := params["max_bytes"].(float64); ok && m > 0 {
		maxBytes = int64(m)
	}

	path = resolvePath(t.baseDir, path)

	info, err := os.Stat(path)
	if err != nil {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "FILE_NOT_FOUND", Message: err.Error()},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	if info.IsDir() {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "IS_DIRECTORY", Message: fmt.Sprintf("path is a directory, not a file: %s", path)},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "READ_FAILED", Message: err.Error()},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return &shuttle.Result{
			Error:           &shuttle.Error{Code: "READ_FAILED", Message: err.Error()},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// Drop a rune split by the byte limit.
	if info.Size() > maxBytes {
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0 && !utf8.Valid(data); i++ {
			data = data[:len(data)-1]
		}
	}

	out := string(data)
	if info.Size() > maxBytes {
		out += fmt.Sprintf("\n[truncated: showing %d of %d bytes]", len(data), info.Size())
	}

	return &shuttle.Result{
		Success:         true,
		Output:          out,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func resolvePath(baseDir, path string) string {
	path = filepath.Clean(path)
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	return path
}
