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
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverRegistered(t *testing.T) {
	assert.True(t, slices.Contains(sql.Drivers(), DriverName), "sqlite3 driver should be registered")
}

func TestOpen_FileDatabase(t *testing.T) {
	t.Setenv(KeyEnv, "")
	path := filepath.Join(t.TempDir(), "nested", "ask.db")

	db, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO notes (body) VALUES (?)", "hello")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	var body string
	require.NoError(t, db.QueryRow("SELECT body FROM notes WHERE id = 1").Scan(&body))
	assert.Equal(t, "hello", body)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Encryption(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.db")

	db, err := Open(context.Background(), Config{Path: path, EncryptionKey: "k'ey"})
	if !EncryptionSupported {
		assert.ErrorIs(t, err, ErrEncryptionUnsupported)
		return
	}
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (v TEXT)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(context.Background(), Config{Path: path, EncryptionKey: "wrong"})
	assert.Error(t, err)
}
