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

// Package llm holds helpers shared by model providers.
package llm

import "strings"

// MaxToolNameLength is the longest function name OpenAI-compatible APIs accept.
const MaxToolNameLength = 64

// SanitizeToolName rewrites a catalog name to match ^[a-zA-Z0-9_-]{1,64}$.
// MCP servers may use dots, colons or slashes in tool names; those become
// underscores and the result is cut to MaxToolNameLength.
func SanitizeToolName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9', ch == '_', ch == '-':
			b.WriteRune(ch)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= MaxToolNameLength {
			break
		}
	}
	return b.String()
}

// BuildToolNameMap maps sanitized names back to catalog names. When two
// names collide after sanitizing, a name that is already valid keeps its
// slot; otherwise the first one wins.
func BuildToolNameMap(names []string) map[string]string {
	m := make(map[string]string, len(names))
	for _, name := range names {
		sanitized := SanitizeToolName(name)
		if _, taken := m[sanitized]; !taken || sanitized == name {
			m[sanitized] = name
		}
	}
	return m
}

// ReverseToolName maps a sanitized name back to its catalog name, or
// returns it unchanged when unknown.
func ReverseToolName(nameMap map[string]string, sanitizedName string) string {
	if original, exists := nameMap[sanitizedName]; exists {
		return original
	}
	return sanitizedName
}
