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

// Package config reads and writes ~/.ask/config and resolves the
// settings a run uses from it, the environment and flags.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/teradata-labs/ask/internal/ordered"
)

// File is the on-disk configuration. The mcpServers section uses the
// same shape as an .mcp.json file.
type File struct {
	MCPServers        *Servers          `json:"mcpServers"`
	AutoApprovedTools []string          `json:"autoApprovedTools,omitempty"`
	BaseURL           string            `json:"baseUrl,omitempty"`
	DefaultModel      string            `json:"defaultModel,omitempty"`
	ModelAliases      map[string]string `json:"modelAliases,omitempty"`
	MaxRounds         int               `json:"maxRounds,omitempty"`
	RequestTimeout    string            `json:"requestTimeout,omitempty"`
	LogLevel          string            `json:"logLevel,omitempty"`
	LogFile           string            `json:"logFile,omitempty"`
}

// ServerEntry is one mcpServers value.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Tools   *ToolFilter       `json:"tools,omitempty"`

	// Timeout is a Go duration string such as "90s".
	Timeout string `json:"timeout,omitempty"`
}

// ToolFilter is the per-server include/exclude list.
type ToolFilter struct {
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// NewFile returns an empty configuration.
func NewFile() *File {
	return &File{MCPServers: NewServers()}
}

func (f *File) normalize() {
	if f.MCPServers == nil {
		f.MCPServers = NewServers()
	}
}

// Servers is the mcpServers object. Servers keep the order they appear
// in the file, which is the order they are started and listed in.
type Servers struct {
	m *ordered.Map[string, ServerEntry]
}

// NewServers returns an empty server set.
func NewServers() *Servers {
	return &Servers{m: ordered.New[string, ServerEntry]()}
}

// Names lists the servers in file order.
func (s *Servers) Names() []string {
	if s == nil || s.m == nil {
		return nil
	}
	return s.m.Keys()
}

// Get returns a server entry.
func (s *Servers) Get(name string) (ServerEntry, bool) {
	if s == nil || s.m == nil {
		return ServerEntry{}, false
	}
	return s.m.Get(name)
}

// Set adds or replaces a server, keeping its position if present.
func (s *Servers) Set(name string, entry ServerEntry) {
	if s.m == nil {
		s.m = ordered.New[string, ServerEntry]()
	}
	s.m.Set(name, entry)
}

// Delete removes a server.
func (s *Servers) Delete(name string) {
	if s.m != nil {
		s.m.Delete(name)
	}
}

// Len returns the number of servers.
func (s *Servers) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Len()
}

// UnmarshalJSON decodes the object key by key to keep its order.
func (s *Servers) UnmarshalJSON(data []byte) error {
	s.m = ordered.New[string, ServerEntry]()
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("mcpServers: expected an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("mcpServers: expected a server name")
		}
		var entry ServerEntry
		if err := dec.Decode(&entry); err != nil {
			return fmt.Errorf("mcpServers.%s: %w", name, err)
		}
		if _, dup := s.m.Get(name); dup {
			return fmt.Errorf("mcpServers: duplicate server %q", name)
		}
		s.m.Set(name, entry)
	}

	_, err = dec.Token()
	return err
}

// MarshalJSON writes the servers in order.
func (s *Servers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil && s.m != nil {
		first := true
		for name, entry := range s.m.All() {
			if !first {
				buf.WriteByte(',')
			}
			first = false

			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(entry)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AliasNames returns the model aliases sorted by name.
func (f *File) AliasNames() []string {
	names := make([]string, 0, len(f.ModelAliases))
	for n := range f.ModelAliases {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
