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

package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy. Components wrap these with fmt.Errorf("%w: ...") and
// callers classify with errors.Is.
var (
	// ErrLaunch: a tool server could not be started. Fatal only to that server.
	ErrLaunch = errors.New("launch error")

	// ErrProtocol: a malformed or incompatible protocol exchange.
	ErrProtocol = errors.New("protocol error")

	// ErrTransport: the channel to a tool server is closed or broken.
	ErrTransport = errors.New("transport error")

	// ErrTimeout: no response within the configured bound.
	ErrTimeout = errors.New("timeout")

	// ErrCanceled: a pending call was resolved because its session died.
	ErrCanceled = errors.New("request canceled")

	// ErrToolExecution: the tool ran and reported failure.
	ErrToolExecution = errors.New("tool execution error")

	// ErrRegistrationConflict: a tool name is already registered.
	ErrRegistrationConflict = errors.New("registration conflict")

	// ErrToolNotFound: no tool is registered under the name.
	ErrToolNotFound = errors.New("tool not found")

	// ErrPermissionDenied: the operator declined the invocation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrResourceExhausted: the agent loop reached its round limit.
	ErrResourceExhausted = errors.New("resource exhausted")
)

// APIError is a non-2xx answer from a model API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether repeating the request may succeed.
// Rate limits and server-side failures are retryable; other client errors are not.
func (e *APIError) Retryable() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusRequestTimeout {
		return true
	}
	return e.StatusCode >= 500
}

// IsRetryable reports whether err is worth retrying against a model API.
// Errors that are not API errors (network failures) are retryable.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}
