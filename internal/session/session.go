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

// Package session stores conversations in a local SQLite database so a
// later run can continue them by name.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teradata-labs/ask/internal/sqlitedriver"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

// DefaultName is the session a run saves to when none is named.
const DefaultName = "last"

const lastSessionKey = "last_session"

// ErrNotFound is returned for a session name that has never been saved.
var ErrNotFound = errors.New("session not found")

// Info summarizes a stored session.
type Info struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Config configures a Store.
type Config struct {
	// Path is the database file (default: ":memory:").
	Path string
	// EncryptionKey is passed to sqlitedriver.Open.
	EncryptionKey string
	Logger        *zap.Logger
}

// Store persists conversations.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	now    func() time.Time
}

// Open opens the database at config.Path and creates the schema.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	db, err := sqlitedriver.Open(ctx, sqlitedriver.Config{Path: config.Path, EncryptionKey: config.EncryptionKey})
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, logger: config.Logger, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls_json TEXT,
		tool_use_id TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the messages stored under name and marks it as the last
// session. System messages are not stored.
func (s *Store) Save(ctx context.Context, name string, messages []types.Message) error {
	if name == "" {
		name = DefaultName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UnixMilli()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM sessions WHERE name = ?`, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			id, name, now, now); err != nil {
			return fmt.Errorf("failed to create session %q: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up session %q: %w", name, err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("failed to update session %q: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear session %q: %w", name, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, seq, role, content, tool_calls_json, tool_use_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			continue
		}
		var toolCalls sql.NullString
		if len(msg.ToolCalls) > 0 {
			raw, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to marshal tool calls: %w", err)
			}
			toolCalls = sql.NullString{String: string(raw), Valid: true}
		}
		created := now
		if !msg.Timestamp.IsZero() {
			created = msg.Timestamp.UnixMilli()
		}
		if _, err := stmt.ExecContext(ctx, id, seq, msg.Role, msg.Content, toolCalls,
			sql.NullString{String: msg.ToolUseID, Valid: msg.ToolUseID != ""}, created); err != nil {
			return fmt.Errorf("failed to store message %d: %w", seq, err)
		}
		seq++
	}

	if err := setLast(ctx, tx, name); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session %q: %w", name, err)
	}

	s.logger.Debug("session saved", zap.String("session", name), zap.Int("messages", seq))
	return nil
}

// Load returns the stored messages of name in order.
func (s *Store) Load(ctx context.Context, name string) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_calls_json, tool_use_id, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var (
			msg       types.Message
			toolCalls sql.NullString
			toolUseID sql.NullString
			created   int64
		)
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &toolUseID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if toolCalls.Valid {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		msg.ToolUseID = toolUseID.String
		msg.Timestamp = time.UnixMilli(created)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Exists reports whether name has been saved.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.lookup(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// List returns every session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.updated_at, COUNT(m.seq)
		FROM sessions s LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info             Info
			created, updated int64
		)
		if err := rows.Scan(&info.ID, &info.Name, &created, &updated, &info.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		info.CreatedAt = time.UnixMilli(created)
		info.UpdatedAt = time.UnixMilli(updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete session %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE key = ? AND value = ?`, lastSessionKey, name); err != nil {
		return fmt.Errorf("failed to clear last session: %w", err)
	}
	return nil
}

// Copy stores the messages of from under to, replacing what to held.
func (s *Store) Copy(ctx context.Context, from, to string) error {
	messages, err := s.Load(ctx, from)
	if err != nil {
		return err
	}
	return s.Save(ctx, to, messages)
}

// Last returns the name of the most recently saved session.
func (s *Store) Last(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var name string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, lastSessionKey).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read last session: %w", err)
	}
	return name, nil
}

func (s *Store) lookup(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up session %q: %w", name, err)
	}
	return id, nil
}

func setLast(ctx context.Context, tx *sql.Tx, name string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, lastSessionKey, name)
	if err != nil {
		return fmt.Errorf("failed to record last session: %w", err)
	}
	return nil
}
