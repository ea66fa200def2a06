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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if store.Exists() {
				fmt.Fprintf(out, "Config file already exists at %s\n", store.Path())
				return nil
			}

			f := config.NewFile()
			f.BaseURL = config.DefaultBaseURL
			f.DefaultModel = config.DefaultModel
			if err := store.Save(f); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", store.Path())
			fmt.Fprintln(out, "Add MCP servers with: ask mcp add <name> <command> --args <args>")
			return nil
		},
	}
}
