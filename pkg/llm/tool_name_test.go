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

package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeToolName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no change needed", "execute_command", "execute_command"},
		{"dashes kept", "git-server_status", "git-server_status"},
		{"colon", "vantage:execute_sql", "vantage_execute_sql"},
		{"dots and slashes", "fs_files/read.v2", "fs_files_read_v2"},
		{"unicode", "wiki_lookup_é", "wiki_lookup__"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeToolName(tt.input))
		})
	}
}

func TestSanitizeToolName_Truncates(t *testing.T) {
	long := strings.Repeat("a", 100)
	assert.Len(t, SanitizeToolName(long), MaxToolNameLength)
}

func TestToolNameMap(t *testing.T) {
	m := BuildToolNameMap([]string{"fs_read.file", "fs_read_file", "list_directory"})

	assert.Equal(t, "fs_read_file", ReverseToolName(m, "fs_read_file"), "valid name wins a collision")
	assert.Equal(t, "list_directory", ReverseToolName(m, "list_directory"))
	assert.Equal(t, "unknown_tool", ReverseToolName(m, "unknown_tool"))
	assert.Equal(t, "any_tool", ReverseToolName(nil, "any_tool"))
}

func TestToolNameMap_FirstAliasWins(t *testing.T) {
	m := BuildToolNameMap([]string{"git:status", "git/status"})
	assert.Equal(t, "git:status", ReverseToolName(m, "git_status"))
	assert.Len(t, m, 1)
}
