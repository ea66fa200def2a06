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

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/config"
	"golang.org/x/term"
)

func newSetAPIKeyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-api-key",
		Short: "Store the model API key in the OS keychain",
		Long: `Store the model API key in the OS keychain. Environment variables
(ASK_API_KEY, OPENROUTER_API_KEY, OPENAI_API_KEY) still take precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "API key: ")

			var key string
			if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				raw, err := term.ReadPassword(int(f.Fd()))
				fmt.Fprintln(cmd.ErrOrStderr())
				if err != nil {
					return fmt.Errorf("read API key: %w", err)
				}
				key = string(raw)
			} else {
				line, err := bufio.NewReader(a.in).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read API key: %w", err)
				}
				key = line
			}

			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("API key must not be empty")
			}
			if err := config.SaveAPIKey(key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved to the keychain")
			return nil
		},
	}
}
