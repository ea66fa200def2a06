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

package agent

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// RetryConfig configures exponential backoff for model requests.
type RetryConfig struct {
	// MaxTries counts the first attempt (default: 3).
	MaxTries uint

	InitialInterval time.Duration // default: 1s
	MaxInterval     time.Duration // default: 10s
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxTries == 0 {
		c.MaxTries = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10 * time.Second
	}
	return c
}

// chatWithRetry sends the conversation with the current catalog, retrying
// rate limits, server errors and network failures. Other API errors, such
// as a rejected key, fail immediately.
func (a *Agent) chatWithRetry(ctx context.Context, messages []types.Message, logger *zap.Logger) (*types.LLMResponse, error) {
	tools := a.registry.Specs()

	attempt := 0
	operation := func() (*types.LLMResponse, error) {
		attempt++
		resp, err := a.provider.Chat(ctx, messages, tools)
		if err == nil {
			if attempt > 1 {
				logger.Info("llm retry succeeded", zap.Int("attempt", attempt))
			}
			return resp, nil
		}
		if ctx.Err() != nil || !types.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.config.Retry.InitialInterval
	b.MaxInterval = a.config.Retry.MaxInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(a.config.Retry.MaxTries),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			logger.Warn("llm call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		}),
	)
}
