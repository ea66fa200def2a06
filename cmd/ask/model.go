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
	"strings"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/config"
)

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Show or change the default model and model aliases",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the default model",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := a.loadFile()
				if err != nil {
					return err
				}
				model, alias := config.ResolveModel(f.DefaultModel, f.ModelAliases)
				if alias != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", alias, model)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), model)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <model>",
			Short: "Set the default model",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.setDefaultModel(cmd, args[0])
			},
		},
		&cobra.Command{
			Use:   "aliases",
			Short: "List model aliases",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := a.loadFile()
				if err != nil {
					return err
				}
				names := f.AliasNames()
				if len(names) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No model aliases configured")
					return nil
				}
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, f.ModelAliases[name])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "alias <alias> <model>",
			Short: "Define a short name for a model",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				alias, model := args[0], args[1]
				if strings.TrimSpace(alias) == "" || strings.TrimSpace(model) == "" {
					return fmt.Errorf("alias and model must not be empty")
				}
				err := a.updateFile(func(f *config.File) error {
					if f.ModelAliases == nil {
						f.ModelAliases = make(map[string]string)
					}
					f.ModelAliases[alias] = model
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Model alias %s set to %s\n", alias, model)
				return nil
			},
		},
		&cobra.Command{
			Use:   "unalias <alias>",
			Short: "Remove a model alias",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				alias := args[0]
				err := a.updateFile(func(f *config.File) error {
					if _, ok := f.ModelAliases[alias]; !ok {
						return fmt.Errorf("model alias %s not found", alias)
					}
					delete(f.ModelAliases, alias)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Model alias removed")
				return nil
			},
		},
	)
	return cmd
}

func newSetDefaultModelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default-model <model>",
		Short: "Set the default model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setDefaultModel(cmd, args[0])
		},
	}
}

func newSetBaseURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "set-base-url <url>",
		Short:   "Set the OpenAI-compatible API base URL",
		Example: "  ask set-base-url https://openrouter.ai/api/v1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := strings.TrimRight(strings.TrimSpace(args[0]), "/")
			if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
				return fmt.Errorf("base URL must start with http:// or https://, got %q", args[0])
			}
			if err := a.updateFile(func(f *config.File) error {
				f.BaseURL = url
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Base URL set to %s\n", url)
			return nil
		},
	}
}

func (a *app) setDefaultModel(cmd *cobra.Command, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if err := a.updateFile(func(f *config.File) error {
		f.DefaultModel = model
		return nil
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Default model set to %s\n", model)
	return nil
}

func (a *app) loadFile() (*config.File, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	return store.Load()
}

func (a *app) updateFile(fn func(*config.File) error) error {
	store, err := a.store()
	if err != nil {
		return err
	}
	return store.Update(fn)
}
