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

// Package builtin provides the tools that run inside the ask process.
package builtin

import (
	"time"

	"github.com/teradata-labs/ask/pkg/shuttle"
)

// Options configures the built-in tools.
type Options struct {
	// BaseDir resolves relative paths; empty means the working directory.
	BaseDir string

	// CommandTimeout bounds execute_command; zero means five minutes.
	CommandTimeout time.Duration
}

// All returns every built-in tool in catalog order.
func All(opts Options) []shuttle.Tool {
	return []shuttle.Tool{
		NewExecuteCommandTool(opts.CommandTimeout),
		NewFileReadTool(opts.BaseDir),
		NewListDirectoryTool(opts.BaseDir),
	}
}

// Names returns the names of all built-in tools.
func Names() []string {
	tools := All(Options{})
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name()
	}
	return names
}

// RegisterAll registers every built-in tool.
func RegisterAll(registry *shuttle.Registry, opts Options) {
	registry.RegisterTools(All(opts)...)
}
