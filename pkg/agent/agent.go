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

// Package agent drives one question/answer exchange with a model: it sends
// the conversation and tool catalog, runs the tool calls the model asks for
// through the permission gate, and repeats until the model answers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teradata-labs/ask/internal/permission"
	"github.com/teradata-labs/ask/pkg/shuttle"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// DefaultMaxRounds bounds the model requests of one Run.
const DefaultMaxRounds = 21

// SkippedMessage answers tool calls that were not run because the run was
// interrupted.
const SkippedMessage = "Tool call skipped: the request was interrupted."

// Gate decides whether a tool call may run.
type Gate interface {
	Check(ctx context.Context, req permission.Request) permission.Decision
}

// Config configures an Agent.
type Config struct {
	Provider types.LLMProvider
	Registry *shuttle.Registry
	Gate     Gate
	Logger   *zap.Logger

	// SystemPrompt opens every conversation; see SystemPrompt.
	SystemPrompt string

	// MaxRounds bounds model requests per Run (default: 21).
	MaxRounds int

	Retry RetryConfig
}

// Agent runs conversations. It is not safe for concurrent Runs.
type Agent struct {
	provider types.LLMProvider
	registry *shuttle.Registry
	gate     Gate
	logger   *zap.Logger
	config   Config
}

// Response is the outcome of Run. It is returned alongside errors too, so
// the conversation so far can still be saved.
type Response struct {
	// Content is the final answer.
	Content string

	// Messages is the whole conversation, system prompt first.
	Messages []types.Message

	// Rounds is the number of model requests made.
	Rounds int

	// ToolCalls counts the tool calls the model requested.
	ToolCalls int

	Usage types.Usage
}

// New creates an agent.
func New(config Config) (*Agent, error) {
	if config.Provider == nil {
		return nil, errors.New("agent requires a model provider")
	}
	if config.Registry == nil {
		return nil, errors.New("agent requires a tool registry")
	}
	if config.Gate == nil {
		return nil, errors.New("agent requires a permission gate")
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultMaxRounds
	}
	config.Retry = config.Retry.withDefaults()

	return &Agent{
		provider: config.Provider,
		registry: config.Registry,
		gate:     config.Gate,
		logger:   config.Logger,
		config:   config,
	}, nil
}

// Run appends question to history and loops until the model gives a final
// answer. History system messages are replaced by the configured prompt.
func (a *Agent) Run(ctx context.Context, history []types.Message, question string) (*Response, error) {
	resp := &Response{}
	if a.config.SystemPrompt != "" {
		resp.Messages = append(resp.Messages, types.NewMessage(types.RoleSystem, a.config.SystemPrompt))
	}
	for _, msg := range history {
		if msg.Role != types.RoleSystem {
			resp.Messages = append(resp.Messages, msg)
		}
	}
	resp.Messages = append(resp.Messages, types.NewMessage(types.RoleUser, question))

	for resp.Rounds < a.config.MaxRounds {
		if err := ctx.Err(); err != nil {
			return resp, err
		}

		resp.Rounds++
		logger := a.logger.With(zap.Int("round", resp.Rounds))
		logger.Debug("sending conversation", zap.Int("messages", len(resp.Messages)))

		out, err := a.chatWithRetry(ctx, resp.Messages, logger)
		if err != nil {
			if ctx.Err() != nil {
				return resp, ctx.Err()
			}
			return resp, fmt.Errorf("model request failed: %w", err)
		}
		addUsage(&resp.Usage, out.Usage)

		assistant := types.Message{
			Role:      types.RoleAssistant,
			Content:   out.Content,
			ToolCalls: out.ToolCalls,
			Timestamp: time.Now(),
		}
		resp.Messages = append(resp.Messages, assistant)

		if len(out.ToolCalls) == 0 {
			if out.StopReason == types.StopMaxTokens {
				logger.Warn("model response was truncated at the token limit")
			}
			resp.Content = out.Content
			return resp, nil
		}

		resp.ToolCalls += len(out.ToolCalls)
		resp.Messages = a.runToolCalls(ctx, resp.Messages, out.ToolCalls, logger)
	}

	return resp, fmt.Errorf("%w: no final answer after %d rounds", types.ErrResourceExhausted, a.config.MaxRounds)
}

// runToolCalls runs calls in order and appends exactly one result per call.
// Once ctx is done, the remaining calls are answered as skipped.
func (a *Agent) runToolCalls(ctx context.Context, msgs []types.Message, calls []types.ToolCall, logger *zap.Logger) []types.Message {
	for _, call := range calls {
		if ctx.Err() != nil {
			msgs = append(msgs, types.NewToolResult(call.ID, SkippedMessage))
			continue
		}
		result := a.runToolCall(ctx, call, logger.With(zap.String("tool", call.Name)))
		msgs = append(msgs, types.NewToolResult(call.ID, result))
	}
	return msgs
}

// runToolCall gates and executes one call, folding every failure into the
// returned text.
func (a *Agent) runToolCall(ctx context.Context, call types.ToolCall, logger *zap.Logger) string {
	desc, err := a.registry.Resolve(call.Name)
	if err != nil {
		logger.Warn("model requested an unknown tool")
		return errorResult(err)
	}

	if raw, ok := call.Input["_raw"].(string); ok && len(call.Input) == 1 {
		logger.Warn("model sent malformed tool arguments")
		return fmt.Sprintf("Error: arguments are not a valid JSON object: %s", raw)
	}

	decision := a.gate.Check(ctx, permission.Request{
		Tool:      call.Name,
		Remote:    desc.Remote(),
		Arguments: call.Input,
	})
	if !decision.Allowed() {
		logger.Debug("tool call denied")
		return decision.Message
	}

	// An approved call runs to completion even if the run is interrupted.
	out, err := a.registry.Execute(context.WithoutCancel(ctx), call.Name, call.Input)
	if err != nil {
		logger.Debug("tool call failed", zap.Error(err))
		return errorResult(err)
	}
	return out
}

func errorResult(err error) string {
	return "Error: " + err.Error()
}

func addUsage(total *types.Usage, u types.Usage) {
	total.InputTokens += u.InputTokens
	total.OutputTokens += u.OutputTokens
	total.TotalTokens += u.TotalTokens
}
