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

// Package openai is a client for OpenAI-compatible chat completions APIs,
// including OpenRouter and local gateways.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/teradata-labs/ask/pkg/llm"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4.1-mini"
	DefaultTimeout = 120 * time.Second

	// maxErrorBody bounds how much of a failed response is kept in the error.
	maxErrorBody = 2048
)

// Config holds configuration for the client.
type Config struct {
	APIKey string
	// BaseURL is the API root; "/chat/completions" is appended.
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	Logger    *zap.Logger

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client implements types.LLMProvider for chat completions.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	maxTokens  int
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		apiKey:     config.APIKey,
		model:      config.Model,
		endpoint:   strings.TrimRight(config.BaseURL, "/") + "/chat/completions",
		maxTokens:  config.MaxTokens,
		httpClient: httpClient,
		logger:     config.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends the conversation and tool catalog and returns the first choice.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []types.ToolSpec) (*types.LLMResponse, error) {
	tools, nameMap := c.dedupeTools(tools)

	req := &ChatCompletionRequest{
		Model:     c.model,
		Messages:  convertMessages(messages),
		MaxTokens: c.maxTokens,
	}
	if apiTools := convertTools(tools); len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("API response contained no choices")
	}

	out := convertResponse(resp)
	for i := range out.ToolCalls {
		out.ToolCalls[i].Name = llm.ReverseToolName(nameMap, out.ToolCalls[i].Name)
	}
	c.logger.Debug("model response",
		zap.String("model", resp.Model),
		zap.String("stop_reason", out.StopReason),
		zap.Int("tool_calls", len(out.ToolCalls)),
		zap.Int("total_tokens", out.Usage.TotalTokens))
	return out, nil
}

// dedupeTools drops tools whose sanitized name is owned by another tool,
// so every function sent maps back to exactly one catalog entry.
func (c *Client) dedupeTools(tools []types.ToolSpec) ([]types.ToolSpec, map[string]string) {
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	nameMap := llm.BuildToolNameMap(names)

	kept := make([]types.ToolSpec, 0, len(tools))
	for _, tool := range tools {
		sanitized := llm.SanitizeToolName(tool.Name)
		if nameMap[sanitized] != tool.Name {
			c.logger.Warn("tool name collides after sanitizing; not offered to model",
				zap.String("tool", tool.Name),
				zap.String("sanitized", sanitized),
				zap.String("kept", nameMap[sanitized]))
			continue
		}
		kept = append(kept, tool)
	}
	return kept, nameMap
}

// convertMessages converts conversation messages to the wire format.
func convertMessages(messages []types.Message) []ChatMessage {
	apiMessages := make([]ChatMessage, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem, types.RoleUser:
			apiMessages = append(apiMessages, ChatMessage{Role: msg.Role, Content: text(msg.Content)})

		case types.RoleAssistant:
			apiMsg := ChatMessage{Role: types.RoleAssistant}
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				apiMsg.Content = text(msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Input)
				if err != nil || tc.Input == nil {
					argsJSON = []byte("{}")
				}
				apiMsg.ToolCalls = append(apiMsg.ToolCalls, ToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: FunctionCall{Name: llm.SanitizeToolName(tc.Name), Arguments: string(argsJSON)},
				})
			}
			apiMessages = append(apiMessages, apiMsg)

		case types.RoleTool:
			apiMessages = append(apiMessages, ChatMessage{
				Role:       types.RoleTool,
				Content:    text(msg.Content),
				ToolCallID: msg.ToolUseID,
			})
		}
	}

	return apiMessages
}

// convertTools converts the tool catalog to function definitions.
func convertTools(tools []types.ToolSpec) []Tool {
	apiTools := make([]Tool, 0, len(tools))
	for _, tool := range tools {
		params := tool.Parameters
		if params == nil {
			params = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}
		apiTools = append(apiTools, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        llm.SanitizeToolName(tool.Name),
				Description: tool.Description,
				Parameters:  params,
			},
		})
	}
	return apiTools
}

// convertResponse converts the first choice to the provider-neutral form.
func convertResponse(resp *ChatCompletionResponse) *types.LLMResponse {
	choice := resp.Choices[0]

	out := &types.LLMResponse{
		Usage: types.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}

	switch choice.FinishReason {
	case "stop":
		out.StopReason = types.StopEndTurn
	case "length":
		out.StopReason = types.StopMaxTokens
	case "tool_calls", "function_call":
		out.StopReason = types.StopToolUse
	default:
		out.StopReason = choice.FinishReason
	}

	if choice.Message.Content != nil {
		out.Content = *choice.Message.Content
	}

	for _, tc := range choice.Message.ToolCalls {
		var input map[string]interface{}
		if strings.TrimSpace(tc.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				// If parsing fails, store as raw string
				input = map[string]interface{}{"_raw": tc.Function.Arguments}
			}
		}
		if input == nil {
			input = map[string]interface{}{}
		}
		out.ToolCalls = append(out.ToolCalls, types.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: input,
		})
	}

	// Some gateways report "stop" alongside tool calls.
	if len(out.ToolCalls) > 0 {
		out.StopReason = types.StopToolUse
	}

	return out
}

// callAPI makes the HTTP request. A non-2xx status is returned as
// *types.APIError.
func (c *Client) callAPI(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, newAPIError(httpResp.StatusCode, respBody)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, &types.APIError{StatusCode: httpResp.StatusCode, Type: resp.Error.Type, Message: resp.Error.Message}
	}

	return &resp, nil
}

func newAPIError(status int, body []byte) *types.APIError {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil && er.Error.Message != "" {
		return &types.APIError{StatusCode: status, Type: er.Error.Type, Message: er.Error.Message}
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &types.APIError{StatusCode: status, Message: msg}
}

func text(s string) *string {
	return &s
}

// Ensure Client implements LLMProvider interface.
var _ types.LLMProvider = (*Client)(nil)
