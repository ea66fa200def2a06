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

package protocol

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
)

// ProtocolVersion is the MCP revision this client requests.
const ProtocolVersion = "2024-11-05"

// SupportedVersions lists the revisions a server may answer with.
var SupportedVersions = []string{"2024-11-05", "2025-03-26", "2025-06-18"}

// IsSupportedVersion reports whether the negotiated version can be spoken.
func IsSupportedVersion(v string) bool {
	return slices.Contains(SupportedVersions, v)
}

// MCP method names used by the client.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
	MethodPing        = "ping"
)

// InitializeParams is sent with the initialize request.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's handshake answer.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Implementation names a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities is empty: the client only consumes tools.
type ClientCapabilities struct{}

// ServerCapabilities declares what the server offers.
type ServerCapabilities struct {
	Tools     *ToolsCapability `json:"tools,omitempty"`
	Resources map[string]any   `json:"resources,omitempty"`
	Prompts   map[string]any   `json:"prompts,omitempty"`
	Logging   map[string]any   `json:"logging,omitempty"`
}

// ToolsCapability is present when the server exposes tools.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// Tool is a tool definition advertised by a server.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ListToolsParams requests one page of tools.
type ListToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is one page of tools/list.
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams is sent with tools/call.
type CallToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// CallToolResult is the answer to tools/call.
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Content is one item of a tool result.
type Content struct {
	Type     string       `json:"type"` // text, image, audio, resource, resource_link
	Text     string       `json:"text,omitempty"`
	Data     string       `json:"data,omitempty"` // base64 for image and audio
	MimeType string       `json:"mimeType,omitempty"`
	URI      string       `json:"uri,omitempty"` // resource_link
	Resource *ResourceRef `json:"resource,omitempty"`
}

// ResourceRef is an embedded resource.
type ResourceRef struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Text renders the result content as plain text for the model.
func (r *CallToolResult) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, c := range r.Content {
		switch c.Type {
		case "text":
			parts = append(parts, c.Text)
		case "image":
			parts = append(parts, fmt.Sprintf("[Image: %s (%d bytes)]", c.MimeType, decodedLen(c.Data)))
		case "audio":
			parts = append(parts, fmt.Sprintf("[Audio: %s (%d bytes)]", c.MimeType, decodedLen(c.Data)))
		case "resource":
			if c.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", c.Resource.URI))
			}
		case "resource_link":
			parts = append(parts, fmt.Sprintf("[Resource: %s]", c.URI))
		}
	}
	return strings.Join(parts, "\n")
}

func decodedLen(data string) int {
	if n := base64.StdEncoding.DecodedLen(len(data)); n > 0 {
		return n - strings.Count(data, "=")
	}
	return 0
}
