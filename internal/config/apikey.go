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

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Keychain entry used by set-api-key.
const (
	KeyringService = "ask"
	KeyringUser    = "api-key"
)

// ErrNoAPIKey is returned when no key source has a value.
var ErrNoAPIKey = errors.New("no API key found")

// APIKeySource names where a key came from, for verbose output.
type APIKeySource string

// ResolveAPIKey finds the model API key: ASK_API_KEY, then
// OPENROUTER_API_KEY for OpenRouter URLs, then OPENAI_API_KEY, then the
// OS keychain.
func ResolveAPIKey(baseURL string) (string, APIKeySource, error) {
	return resolveAPIKey(baseURL, os.LookupEnv, func() (string, error) {
		return keyring.Get(KeyringService, KeyringUser)
	})
}

func resolveAPIKey(baseURL string, lookup func(string) (string, bool), fromKeyring func() (string, error)) (string, APIKeySource, error) {
	vars := []string{"ASK_API_KEY"}
	openRouter := strings.Contains(baseURL, "openrouter")
	if openRouter {
		vars = append(vars, "OPENROUTER_API_KEY")
	}
	vars = append(vars, "OPENAI_API_KEY")

	for _, name := range vars {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), APIKeySource(name), nil
		}
	}

	if key, err := fromKeyring(); err == nil && key != "" {
		return key, "keychain", nil
	}

	hint := "ASK_API_KEY (universal), OPENAI_API_KEY (for OpenAI) or OPENROUTER_API_KEY (if using OpenRouter)"
	if openRouter {
		hint = "ASK_API_KEY (universal), OPENROUTER_API_KEY (for OpenRouter) or OPENAI_API_KEY (for OpenAI)"
	}
	return "", "", fmt.Errorf("%w: set %s, or run 'ask set-api-key'", ErrNoAPIKey, hint)
}

// SaveAPIKey stores the key in the OS keychain.
func SaveAPIKey(key string) error {
	if err := keyring.Set(KeyringService, KeyringUser, key); err != nil {
		return fmt.Errorf("save API key to keychain: %w", err)
	}
	return nil
}
