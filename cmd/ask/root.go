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
	"io"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/teradata-labs/ask/internal/config"
	"github.com/teradata-labs/ask/internal/home"
	"github.com/teradata-labs/ask/internal/version"
)

// app carries the state shared by all commands.
type app struct {
	v *viper.Viper

	configPath  string
	sessionName string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp() *app {
	return &app{
		v:      config.NewViper(),
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a language model to get things done with tools",
		Long: heredoc.Doc(`
			ask sends your question to an OpenAI-compatible model and lets it use
			tools to answer: built-in commands for the shell and files, plus every
			tool exposed by the MCP servers in ~/.ask/config.

			Every tool call is shown before it runs. Answer y to run it once,
			a to always allow that tool, or anything else to refuse.
		`),
		Example: heredoc.Doc(`
			ask what changed in the last three commits
			ask -m gpt-4o -s refactor "summarize the open TODOs in this repo"
			ask mcp add git uvx --args mcp-server-git
		`),
		Version:       version.Get(),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runAsk,
	}
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.errOut)

	flags := cmd.PersistentFlags()
	flags.StringP("model", "m", "", "model or model alias to use")
	flags.StringVarP(&a.sessionName, "session", "s", "", "continue and save under this session name")
	flags.BoolP("verbose", "v", false, "show debug logs and auto-approved tool calls")
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.ask/config)")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
	flags.Int("max-rounds", 0, "maximum model requests per question")

	_ = a.v.BindPFlag(config.KeyModel, flags.Lookup("model"))
	_ = a.v.BindPFlag(config.KeyVerbose, flags.Lookup("verbose"))
	_ = a.v.BindPFlag(config.KeyBaseURL, flags.Lookup("base-url"))
	_ = a.v.BindPFlag(config.KeyMaxRounds, flags.Lookup("max-rounds"))

	cmd.AddCommand(
		newInitCmd(a),
		newMCPCmd(a),
		newSessionCmd(a),
		newModelCmd(a),
		newSetBaseURLCmd(a),
		newSetDefaultModelCmd(a),
		newSetAPIKeyCmd(a),
	)
	return cmd
}

// store returns the config store for --config or ~/.ask/config.
func (a *app) store() (*config.Store, error) {
	if a.configPath != "" {
		return config.NewStore(a.configPath), nil
	}
	return config.DefaultStore()
}

// settings loads the config file and layers flags and environment over it.
func (a *app) settings() (*config.Store, *config.Settings, error) {
	store, err := a.store()
	if err != nil {
		return nil, nil, err
	}
	f, err := store.Load()
	if err != nil {
		return nil, nil, err
	}
	st, err := config.Resolve(a.v, f)
	if err != nil {
		return nil, nil, err
	}
	return store, st, nil
}

func sessionsPath() (string, error) {
	if _, err := home.EnsureDir(); err != nil {
		return "", err
	}
	return home.SessionsDB()
}
