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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectShellKind(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		goos string
		want string
	}{
		{name: "powershell marker wins", env: map[string]string{"PSModulePath": "x", "SHELL": "/bin/bash"}, goos: "linux", want: ShellPowershell},
		{name: "posix shell", env: map[string]string{"SHELL": "/bin/zsh"}, goos: "darwin", want: ShellPOSIX},
		{name: "windows cmd", env: map[string]string{"ComSpec": `C:\Windows\system32\CMD.EXE`}, goos: "windows", want: ShellPowershell},
		{name: "nothing set", env: map[string]string{}, goos: "linux", want: ShellPOSIX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}
			assert.Equal(t, tt.want, detectShellKind(lookup, tt.goos))
		})
	}
}

func TestShellCommand(t *testing.T) {
	shell, flag := shellCommand(ShellPOSIX, "linux")
	assert.Equal(t, []string{"sh", "-c"}, []string{shell, flag})

	shell, flag = shellCommand(ShellPowershell, "windows")
	assert.Equal(t, []string{"powershell", "-Command"}, []string{shell, flag})

	shell, flag = shellCommand(ShellPOSIX, "windows")
	assert.Equal(t, []string{"cmd", "/C"}, []string{shell, flag})
}

func TestAllAndNames(t *testing.T) {
	assert.Equal(t, []string{"execute_command", "read_file", "list_directory"}, Names())
}
