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
// Package transport owns tool-server processes and the framed message
// channel to each of them.
package transport

import (
	"context"
)

// Transport is a duplex message channel to one tool server.
//
// Send and Receive return errors wrapping types.ErrTransport when the
// channel is closed or broken; Receive returns types.ErrTimeout when no
// message arrives within the transport's receive timeout.
type Transport interface {
	// Send writes one framed message.
	Send(ctx context.Context, message []byte) error

	// Receive blocks until one complete message arrives.
	Receive(ctx context.Context) ([]byte, error)

	// Close shuts the channel and its process down. It is idempotent.
	Close() error
}
