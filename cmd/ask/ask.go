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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/config"
	"github.com/teradata-labs/ask/internal/log"
	"github.com/teradata-labs/ask/internal/permission"
	"github.com/teradata-labs/ask/internal/session"
	"github.com/teradata-labs/ask/internal/version"
	"github.com/teradata-labs/ask/pkg/agent"
	"github.com/teradata-labs/ask/pkg/llm/openai"
	"github.com/teradata-labs/ask/pkg/mcp/adapter"
	"github.com/teradata-labs/ask/pkg/mcp/manager"
	"github.com/teradata-labs/ask/pkg/shuttle"
	"github.com/teradata-labs/ask/pkg/shuttle/builtin"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

func (a *app) runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return cmd.Help()
	}

	store, st, err := a.settings()
	if err != nil {
		return err
	}

	logger, err := log.New(log.Options{Level: st.LogLevel, File: st.LogFile})
	if err != nil {
		return err
	}
	log.SetLogger(logger)
	defer func() { _ = log.Sync() }()

	apiKey, source, err := config.ResolveAPIKey(st.BaseURL)
	if err != nil {
		return err
	}
	logger.Debug("configuration loaded",
		zap.String("config", store.Path()),
		zap.String("base_url", st.BaseURL),
		zap.String("model", st.Model),
		zap.String("model_alias", st.ModelAlias),
		zap.String("api_key_source", string(source)))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	servers, err := st.Servers()
	if err != nil {
		return err
	}
	mgr, err := manager.NewManager(manager.Config{
		Servers:        servers,
		Logger:         logger,
		ClientName:     "ask",
		ClientVersion:  version.Get(),
		RequestTimeout: st.RequestTimeout,
	})
	if err != nil {
		return err
	}
	defer mgr.Stop()

	if err := mgr.Start(ctx); err != nil {
		return err
	}
	for _, status := range mgr.Statuses() {
		if status.Err != nil {
			fmt.Fprintf(a.errOut, "Warning: MCP server %s is unavailable: %v\n", status.Name, status.Err)
		}
	}

	registry := shuttle.NewRegistry(logger)
	builtin.RegisterAll(registry, builtin.Options{})
	adapter.RegisterServerTools(registry, mgr)
	logger.Debug("tool catalog ready", zap.Int("tools", registry.Count()))

	gate, err := permission.NewGate(permission.Config{
		Store:    store,
		Prompter: permission.NewTerminalPrompter(a.in, a.errOut, st.Verbose),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	dbPath, err := sessionsPath()
	if err != nil {
		return err
	}
	sessions, err := session.Open(ctx, session.Config{Path: dbPath, Logger: logger})
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	defer sessions.Close()

	var history []types.Message
	if a.sessionName != "" {
		history, err = sessions.Load(ctx, a.sessionName)
		if errors.Is(err, session.ErrNotFound) {
			logger.Debug("starting new session", zap.String("session", a.sessionName))
		} else if err != nil {
			return err
		}
	}

	ag, err := agent.New(agent.Config{
		Provider: openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: st.BaseURL,
			Model:   st.Model,
			Logger:  logger,
		}),
		Registry:     registry,
		Gate:         gate,
		Logger:       logger,
		SystemPrompt: agent.SystemPrompt(builtin.DetectShellKind(), time.Now()),
		MaxRounds:    st.MaxRounds,
	})
	if err != nil {
		return err
	}

	resp, runErr := ag.Run(ctx, history, question)
	if resp != nil {
		name := a.sessionName
		if name == "" {
			name = session.DefaultName
		}
		if err := sessions.Save(context.WithoutCancel(ctx), name, resp.Messages); err != nil {
			fmt.Fprintf(a.errOut, "Warning: failed to save session: %v\n", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	logger.Debug("answered",
		zap.Int("rounds", resp.Rounds),
		zap.Int("tool_calls", resp.ToolCalls),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	fmt.Fprintln(a.out, resp.Content)
	return nil
}
