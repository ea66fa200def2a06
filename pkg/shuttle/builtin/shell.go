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
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Shell kinds reported to the model.
const (
	ShellPOSIX      = "POSIX"
	ShellPowershell = "Powershell"
)

// DetectShellKind guesses whether commands will run under a POSIX shell
// or PowerShell, from the environment.
func DetectShellKind() string {
	return detectShellKind(os.LookupEnv, runtime.GOOS)
}

func detectShellKind(lookup func(string) (string, bool), goos string) string {
	for _, k := range []string{"POWERSHELL_DISTRIBUTION_CHANNEL", "PSModulePath", "PSExecutionPolicyPreference"} {
		if _, ok := lookup(k); ok {
			return ShellPowershell
		}
	}
	for _, k := range []string{"SHELL", "BASH_VERSION", "ZSH_VERSION", "FISH_VERSION"} {
		if _, ok := lookup(k); ok {
			return ShellPOSIX
		}
	}
	if goos == "windows" {
		if comspec, ok := lookup("ComSpec"); ok && strings.EqualFold(filepath.Base(comspec), "cmd.exe") {
			return ShellPowershell
		}
	}
	return ShellPOSIX
}

// shellCommand returns the interpreter and flag used to run a command line.
func shellCommand(kind, goos string) (string, string) {
	switch {
	case goos == "windows" && kind == ShellPowershell:
		return "powershell", "-Command"
	case goos == "windows":
		return "cmd", "/C"
	default:
		return "sh", "-c"
	}
}
