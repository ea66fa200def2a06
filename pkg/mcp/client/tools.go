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

package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/teradata-labs/ask/pkg/mcp/protocol"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// maxToolPages guards against servers that keep returning a cursor.
const maxToolPages = 100

// ListTools fetches every page of tools/list and caches the definitions
// for argument validation.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	var (
		tools  []protocol.Tool
		cursor string
	)

	for page := 0; page < maxToolPages; page++ {
		var result protocol.ListToolsResult
		err := c.sendRequest(ctx, protocol.MethodToolsList, protocol.ListToolsParams{Cursor: cursor}, &result)
		if err != nil {
			var rpcErr *protocol.Error
			if errors.As(err, &rpcErr) {
				return nil, fmt.Errorf("%w: server %q: tools/list: %v", types.ErrProtocol, c.serverName, rpcErr)
			}
			return nil, err
		}

		tools = append(tools, result.Tools...)
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	c.toolsMu.Lock()
	c.tools = make(map[string]protocol.Tool, len(tools))
	for _, t := range tools {
		c.tools[t.Name] = t
	}
	c.toolsMu.Unlock()

	c.logger.Debug("MCP tools listed", zap.Int("count", len(tools)))

	return tools, nil
}

// CallTool invokes a tool and returns its result. A server-reported
// failure, either isError or a JSON-RPC error, is returned as an error
// wrapping types.ErrToolExecution alongside whatever result was sent.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]interface{}) (*protocol.CallToolResult, error) {
	c.toolsMu.RLock()
	tool, known := c.tools[name]
	c.toolsMu.RUnlock()

	if known {
		if err := protocol.ValidateToolArguments(tool, arguments); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrToolExecution, err)
		}
	}

	params := protocol.CallToolParams{Name: name, Arguments: arguments}

	var result protocol.CallToolResult
	if err := c.sendRequest(ctx, protocol.MethodToolsCall, params, &result); err != nil {
		var rpcErr *protocol.Error
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %s", types.ErrToolExecution, rpcErr.Message)
		}
		return nil, err
	}

	if result.IsError {
		return &result, fmt.Errorf("%w: %s", types.ErrToolExecution, result.Text())
	}

	return &result, nil
}
