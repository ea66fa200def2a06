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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/teradata-labs/ask/internal/home"
)

const (
	configDirMode  = 0o750
	configFileMode = 0o600
	tempPattern    = ".config-*.tmp"
)

// Store owns the config file. All writes go through it and replace the
// file atomically.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store for ~/.ask/config.
func DefaultStore() (*Store, error) {
	path, err := home.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("locate config file: %w", err)
	}
	return NewStore(path), nil
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the config file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the file. A missing file is an empty configuration.
func (s *Store) Load() (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save replaces the file with f.
func (s *Store) Save(f *File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(f)
}

// Update loads the file, applies fn and saves the result. Nothing is
// written when fn fails.
func (s *Store) Update(fn func(*File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	return s.write(f)
}

// LoadApproved returns the durable approval set.
func (s *Store) LoadApproved() ([]string, error) {
	f, err := s.Load()
	if err != nil {
		return nil, err
	}
	return f.AutoApprovedTools, nil
}

// AddApproved adds one tool to the durable approval set on disk, keeping
// the rest of the file and any approvals written since it was loaded.
func (s *Store) AddApproved(tool string) error {
	return s.Update(func(f *File) error {
		if slices.Contains(f.AutoApprovedTools, tool) {
			return nil
		}
		f.AutoApprovedTools = append(f.AutoApprovedTools, tool)
		slices.Sort(f.AutoApprovedTools)
		return nil
	})
}

func (s *Store) load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", s.path, err)
	}

	f := NewFile()
	if err := json.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", s.path, err)
	}
	f.normalize()
	return f, nil
}

func (s *Store) write(f *File) error {
	f.normalize()

	if err := os.MkdirAll(filepath.Dir(s.path), configDirMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), tempPattern)
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}

	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Chmod(configFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}

	cleanup = false
	return nil
}
