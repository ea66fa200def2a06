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
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/teradata-labs/ask/pkg/mcp/manager"
)

// Viper keys. Each is also read from ASK_<KEY> in the environment.
const (
	KeyModel          = "model"
	KeyBaseURL        = "base_url"
	KeyMaxRounds      = "max_rounds"
	KeyRequestTimeout = "request_timeout"
	KeyLogLevel       = "log_level"
	KeyLogFile        = "log_file"
	KeyVerbose        = "verbose"
)

// Defaults.
const (
	DefaultModel          = "gpt-4.1-mini"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultMaxRounds      = 21
	DefaultRequestTimeout = 60 * time.Second
	DefaultLogLevel       = "warn"
)

// NewViper returns a viper instance with ask's defaults and environment
// binding. Callers bind their flags to it before Resolve.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyMaxRounds, DefaultMaxRounds)
	v.SetDefault(KeyRequestTimeout, DefaultRequestTimeout)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyVerbose, false)

	v.SetEnvPrefix("ASK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Settings is what a run uses after flags, environment, file and
// defaults have been layered, in that order of precedence.
type Settings struct {
	// Model is the resolved model id, after alias lookup.
	Model string

	// ModelAlias is the name the model was selected by, when it was an alias.
	ModelAlias string

	BaseURL        string
	MaxRounds      int
	RequestTimeout time.Duration
	LogLevel       string
	LogFile        string
	Verbose        bool

	File *File
}

// Resolve layers the file under v's flags and environment.
func Resolve(v *viper.Viper, f *File) (*Settings, error) {
	if f == nil {
		f = NewFile()
	}

	fromFile := map[string]any{}
	if f.DefaultModel != "" {
		fromFile[KeyModel] = f.DefaultModel
	}
	if f.BaseURL != "" {
		fromFile[KeyBaseURL] = f.BaseURL
	}
	if f.MaxRounds != 0 {
		fromFile[KeyMaxRounds] = f.MaxRounds
	}
	if f.RequestTimeout != "" {
		fromFile[KeyRequestTimeout] = f.RequestTimeout
	}
	if f.LogLevel != "" {
		fromFile[KeyLogLevel] = f.LogLevel
	}
	if f.LogFile != "" {
		fromFile[KeyLogFile] = f.LogFile
	}
	if err := v.MergeConfigMap(fromFile); err != nil {
		return nil, fmt.Errorf("merge config file: %w", err)
	}

	s := &Settings{
		BaseURL:   strings.TrimRight(v.GetString(KeyBaseURL), "/"),
		MaxRounds: v.GetInt(KeyMaxRounds),
		LogLevel:  v.GetString(KeyLogLevel),
		LogFile:   v.GetString(KeyLogFile),
		Verbose:   v.GetBool(KeyVerbose),
		File:      f,
	}

	timeout, err := parseDuration(v.GetString(KeyRequestTimeout))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyRequestTimeout, err)
	}
	s.RequestTimeout = timeout

	if s.MaxRounds <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", KeyMaxRounds, s.MaxRounds)
	}
	if s.Verbose {
		s.LogLevel = "debug"
	}

	s.Model, s.ModelAlias = ResolveModel(v.GetString(KeyModel), f.ModelAliases)
	return s, nil
}

// ResolveModel maps an alias to its model id. The second result is the
// alias when one was used.
func ResolveModel(name string, aliases map[string]string) (string, string) {
	if name == "" {
		name = DefaultModel
	}
	if model, ok := aliases[name]; ok && model != "" {
		return model, name
	}
	return name, ""
}

// Servers converts the mcpServers section into manager configuration,
// expanding environment references in commands, args and env values.
func (s *Settings) Servers() ([]manager.ServerConfig, error) {
	return ServerConfigs(s.File)
}

// ServerConfigs converts the mcpServers section of f.
func ServerConfigs(f *File) ([]manager.ServerConfig, error) {
	if f == nil || f.MCPServers == nil {
		return nil, nil
	}

	out := make([]manager.ServerConfig, 0, f.MCPServers.Len())
	for _, name := range f.MCPServers.Names() {
		entry, _ := f.MCPServers.Get(name)

		sc := manager.ServerConfig{
			Name:    name,
			Command: ExpandEnv(entry.Command),
		}
		for _, a := range entry.Args {
			sc.Args = append(sc.Args, ExpandEnv(a))
		}
		if len(entry.Env) > 0 {
			sc.Env = make(map[string]string, len(entry.Env))
			for k, val := range entry.Env {
				sc.Env[k] = ExpandEnv(val)
			}
		}
		if entry.Tools != nil {
			sc.Tools = manager.ToolFilter{Include: entry.Tools.Include, Exclude: entry.Tools.Exclude}
		}
		if entry.Timeout != "" {
			d, err := parseDuration(entry.Timeout)
			if err != nil {
				return nil, fmt.Errorf("mcpServers.%s.timeout: %w", name, err)
			}
			sc.Timeout = d
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultRequestTimeout, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("duration must be positive, got %s", s)
		}
		return d, nil
	}
	var secs int
	if _, err := fmt.Sscanf(s, "%d", &secs); err == nil && fmt.Sprint(secs) == s && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}
