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
	"sort"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/config"
)

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP servers",
		Long:  `List, add and remove the Model Context Protocol (MCP) servers ask starts for each question.`,
	}
	cmd.AddCommand(newMCPListCmd(a), newMCPAddCmd(a), newMCPRemoveCmd(a))
	return cmd
}

func newMCPListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			f, err := store.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.MCPServers.Len() == 0 {
				fmt.Fprintln(out, "No MCP servers configured.")
				fmt.Fprintln(out, "Add one with: ask mcp add <name> <command> --args <args>")
				return nil
			}

			fmt.Fprint(out, "Configured MCP servers:\n\n")
			for _, name := range f.MCPServers.Names() {
				entry, _ := f.MCPServers.Get(name)
				fmt.Fprintf(out, "  %s\n", name)
				fmt.Fprintf(out, "    Command: %s\n", entry.Command)
				if len(entry.Args) > 0 {
					fmt.Fprintf(out, "    Args: %s\n", strings.Join(entry.Args, " "))
				}
				if len(entry.Env) > 0 {
					fmt.Fprintln(out, "    Env:")
					keys := make([]string, 0, len(entry.Env))
					for k := range entry.Env {
						keys = append(keys, k)
					}
					sort.Strings(keys)
					for _, k := range keys {
						fmt.Fprintf(out, "      %s=%s\n", k, entry.Env[k])
					}
				}
				if entry.Tools != nil && len(entry.Tools.Include) > 0 {
					fmt.Fprintf(out, "    Tools: %s\n", strings.Join(entry.Tools.Include, ", "))
				}
				if entry.Tools != nil && len(entry.Tools.Exclude) > 0 {
					fmt.Fprintf(out, "    Excluded tools: %s\n", strings.Join(entry.Tools.Exclude, ", "))
				}
				if entry.Timeout != "" {
					fmt.Fprintf(out, "    Timeout: %s\n", entry.Timeout)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func newMCPAddCmd(a *app) *cobra.Command {
	var (
		serverArgs []string
		envPairs   []string
		timeout    string
	)

	cmd := &cobra.Command{
		Use:   "add <name> <command>",
		Short: "Add an MCP server",
		Long: heredoc.Doc(`
			Add an MCP server. The name prefixes its tools, so a server named
			git exposing "status" offers the tool git_status.

			Arguments and environment values may reference ${VAR} or
			${VAR:-default}; they are expanded each time the server starts.
		`),
		Example: heredoc.Doc(`
			ask mcp add git uvx --args mcp-server-git
			ask mcp add github npx -a -y,@modelcontextprotocol/server-github -e GITHUB_TOKEN=${GITHUB_TOKEN}
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, command := args[0], args[1]

			entry := config.ServerEntry{Command: command, Args: serverArgs, Timeout: timeout}
			for _, pair := range envPairs {
				k, v, ok := strings.Cut(pair, "=")
				if !ok || k == "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: invalid env format '%s', expected KEY=VALUE\n", pair)
					continue
				}
				if entry.Env == nil {
					entry.Env = make(map[string]string)
				}
				entry.Env[k] = v
			}

			store, err := a.store()
			if err != nil {
				return err
			}
			err = store.Update(func(f *config.File) error {
				if _, exists := f.MCPServers.Get(name); exists {
					return fmt.Errorf("MCP server %q already exists; remove it first", name)
				}
				f.MCPServers.Set(name, entry)
				_, err := config.ServerConfigs(f)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added MCP server '%s' to %s\n", name, store.Path())
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&serverArgs, "args", "a", nil, "comma-separated arguments for the command")
	cmd.Flags().StringSliceVarP(&envPairs, "env", "e", nil, "comma-separated KEY=VALUE environment variables")
	cmd.Flags().StringVar(&timeout, "timeout", "", "request timeout for this server, e.g. 90s")
	return cmd
}

func newMCPRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			store, err := a.store()
			if err != nil {
				return err
			}
			err = store.Update(func(f *config.File) error {
				if _, exists := f.MCPServers.Get(name); !exists {
					return fmt.Errorf("MCP server %q not found", name)
				}
				f.MCPServers.Delete(name)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed MCP server '%s' from %s\n", name, store.Path())
			return nil
		},
	}
}
