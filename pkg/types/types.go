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

// Package types holds the conversation and provider types shared by the
// agent loop, the model clients and the session store.
package types

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	// ID is the caller id assigned by the model; the matching tool result carries it back.
	ID string `json:"id"`

	// Name is the fully-qualified tool name
	Name string `json:"name"`

	// Input contains the decoded argument document
	Input map[string]interface{} `json:"input,omitempty"`
}

// Message is one entry of a conversation.
type Message struct {
	// Role is the message sender (system, user, assistant, tool)
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations (if role is assistant)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolUseID is the id of the tool call this result answers (if role is tool)
	ToolUseID string `json:"tool_use_id,omitempty"`

	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ToolSpec is one entry of the tool catalog advertised to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Usage tracks token usage reported by the model API.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Stop reasons normalized across providers.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// LLMResponse represents a response from the model.
type LLMResponse struct {
	// Content is the assistant text
	Content string

	// ToolCalls contains requested tool executions in the order the model emitted them
	ToolCalls []ToolCall

	// StopReason indicates why the model stopped
	StopReason string

	Usage Usage
}

// LLMProvider is a chat-style model backend.
type LLMProvider interface {
	// Chat sends the whole conversation plus the tool catalog and returns one response.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (*LLMResponse, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}

// NewMessage returns a message stamped with the current time.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

// NewToolResult returns a tool-role message answering the call with the given id.
func NewToolResult(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolUseID: callID, Timestamp: time.Now()}
}
