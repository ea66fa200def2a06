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

// Package manager supervises the MCP sessions of all configured servers.
package manager

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ServerConfig describes one tool server. Values are already
// environment-expanded by the configuration layer.
type ServerConfig struct {
	// Name is the unique key and the tool-name prefix.
	Name    string
	Command string
	Args    []string
	Env     map[string]string

	// Tools controls which discovered tools are exposed.
	Tools ToolFilter

	// Timeout overrides the manager's request timeout for this server.
	Timeout time.Duration
}

// ToolFilter selects discovered tools. An empty filter exposes everything.
type ToolFilter struct {
	// Include is an allow-list; when set only these tools are exposed.
	Include []string `json:"include,omitempty"`
	// Exclude is applied after Include.
	Exclude []string `json:"exclude,omitempty"`
}

// Validate checks the server configuration for errors.
func (s *ServerConfig) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("server name is required")
	}
	if s.Command == "" {
		return fmt.Errorf("server %s: command is required", s.Name)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("server %s: timeout must be positive", s.Name)
	}
	return nil
}

// Allows reports whether a discovered tool passes the filter.
func (f ToolFilter) Allows(toolName string) bool {
	if len(f.Include) > 0 && !slices.Contains(f.Include, toolName) {
		return false
	}
	return !slices.Contains(f.Exclude, toolName)
}
