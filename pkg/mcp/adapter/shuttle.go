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

// Package adapter exposes tools discovered on MCP servers through the
// shuttle registry.
package adapter

import (
	"fmt"

	"github.com/teradata-labs/ask/pkg/mcp/protocol"
	"github.com/teradata-labs/ask/pkg/shuttle"
)

// ToolSource is the session supervisor as seen by the registry.
type ToolSource interface {
	shuttle.RemoteCaller

	// ServerNames lists servers in configuration order.
	ServerNames() []string

	// Tools returns a server's discovered tools in discovery order.
	Tools(server string) []protocol.Tool
}

// QualifiedName is the catalog name of a server tool.
func QualifiedName(server, tool string) string {
	return server + "_" + tool
}

// Descriptor builds the registry entry for one server tool.
func Descriptor(server string, tool protocol.Tool, caller shuttle.RemoteCaller) shuttle.Descriptor {
	desc := tool.Description
	if desc == "" {
		desc = fmt.Sprintf("%s tool from MCP server %s", tool.Name, server)
	}

	schema := tool.InputSchema
	if schema == nil {
		schema = map[string]interface{}{"type": "object"}
	}

	return shuttle.Descriptor{
		Name:        QualifiedName(server, tool.Name),
		Description: desc,
		InputSchema: schema,
		Binding: shuttle.Binding{
			Kind:       shuttle.BindingRemote,
			Server:     server,
			RemoteTool: tool.Name,
			Caller:     caller,
		},
	}
}

// RegisterServerTools registers every discovered tool, server by server
// in configuration order. Conflicts are skipped and returned.
func RegisterServerTools(registry *shuttle.Registry, src ToolSource) (int, []error) {
	servers := src.ServerNames()
	registry.SetServerOrder(servers)

	var (
		registered int
		conflicts  []error
	)
	for _, server := range servers {
		for _, tool := range src.Tools(server) {
			if err := registry.Register(Descriptor(server, tool, src)); err != nil {
				conflicts = append(conflicts, err)
				continue
			}
			registered++
		}
	}
	return registered, conflicts
}
