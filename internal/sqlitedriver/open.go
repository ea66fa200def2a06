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

package sqlitedriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyEnv supplies an encryption key when Config.EncryptionKey is empty.
const KeyEnv = "ASK_DB_KEY"

// DriverName is the database/sql driver registered by this package.
const DriverName = "sqlite3"

// ErrEncryptionUnsupported is returned when a key is given to a build
// without SQLCipher.
var ErrEncryptionUnsupported = errors.New("database encryption requires a CGO build")

// Config configures Open.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string

	// EncryptionKey enables SQLCipher. Empty falls back to $ASK_DB_KEY;
	// if that is empty too the database is not encrypted.
	EncryptionKey string
}

// Open opens the database, applies the key and connection pragmas and
// verifies the connection. The pool is limited to one connection so the
// pragmas hold for every statement.
func Open(ctx context.Context, config Config) (*sql.DB, error) {
	if config.Path == "" {
		config.Path = ":memory:"
	}
	if config.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	key := config.EncryptionKey
	if key == "" {
		key = os.Getenv(KeyEnv)
	}
	if key != "" && !EncryptionSupported {
		return nil, ErrEncryptionUnsupported
	}

	db, err := sql.Open(DriverName, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// The key must be the first statement on the connection.
	if key != "" {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA key = '%s'", strings.ReplaceAll(key, "'", "''"))); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set encryption key: %w", err)
		}
	}

	pragmas := []string{"PRAGMA foreign_keys=ON", "PRAGMA busy_timeout=5000"}
	if config.Path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			if key != "" {
				return nil, fmt.Errorf("failed to verify encryption key (wrong key or corrupted database): %w", err)
			}
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
