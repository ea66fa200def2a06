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

package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateToolArguments checks arguments against the tool's input schema.
// A tool without a schema accepts anything.
func ValidateToolArguments(tool Tool, arguments map[string]interface{}) error {
	if len(tool.InputSchema) == 0 {
		return nil
	}
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(tool.InputSchema),
		gojsonschema.NewGoLoader(arguments),
	)
	if err != nil {
		// An unusable schema is the server's problem; let the server decide.
		return nil
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %s", tool.Name, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateResponse checks the JSON-RPC envelope of a response.
func ValidateResponse(resp *Response) error {
	if resp.JSONRPC != JSONRPCVersion {
		return fmt.Errorf("invalid jsonrpc version %q", resp.JSONRPC)
	}
	if resp.ID == nil {
		return errors.New("response id is required")
	}
	if len(resp.Result) > 0 && resp.Error != nil {
		return errors.New("response carries both result and error")
	}
	return nil
}

// ValidateInitializeResult checks the handshake answer.
func ValidateInitializeResult(res *InitializeResult) error {
	if res.ProtocolVersion == "" {
		return errors.New("missing protocolVersion")
	}
	if !IsSupportedVersion(res.ProtocolVersion) {
		return fmt.Errorf("unsupported protocol version %q (supported: %s)",
			res.ProtocolVersion, strings.Join(SupportedVersions, ", "))
	}
	if res.ServerInfo.Name == "" {
		return errors.New("missing serverInfo.name")
	}
	return nil
}
