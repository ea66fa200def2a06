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

package transport

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap/zaptest"
)

func requirePosix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stdio transport tests use sh and cat")
	}
}

func shTransport(t *testing.T, script string, cfg StdioConfig) (*StdioTransport, error) {
	t.Helper()
	cfg.Name = "test"
	cfg.Command = "sh"
	cfg.Args = []string{"-c", script}
	cfg.Logger = zaptest.NewLogger(t)
	if cfg.StartupGrace == 0 {
		cfg.StartupGrace = 50 * time.Millisecond
	}
	return NewStdioTransport(cfg)
}

func TestStdioTransport_RoundTrip(t *testing.T) {
	requirePosix(t)

	tr, err := NewStdioTransport(StdioConfig{Name: "cat", Command: "cat", StartupGrace: 50 * time.Millisecond})
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	require.NoError(t, tr.Send(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"ping"}`)))

	msg, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"ping"}`, string(msg))

	msg, err = tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"jsonrpc":"2.0","id":2,"method":"ping"}`, string(msg))
}

func TestStdioTransport_TrimsCRAndSkipsBlankLines(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `printf 'one\r\n\ntwo\n'; cat`, StdioConfig{})
	require.NoError(t, err)
	defer tr.Close()

	ctx := context.Background()
	msg, err := tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one", string(msg))

	msg, err = tr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two", string(msg))
}

func TestStdioTransport_LaunchErrors(t *testing.T) {
	requirePosix(t)

	t.Run("missing command", func(t *testing.T) {
		_, err := NewStdioTransport(StdioConfig{Name: "missing", Command: "/definitely/not/a/real/binary"})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrLaunch)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := NewStdioTransport(StdioConfig{Name: "empty"})
		assert.ErrorIs(t, err, types.ErrLaunch)
	})

	t.Run("immediate exit", func(t *testing.T) {
		_, err := shTransport(t, `echo "boom: bad flag" >&2; exit 3`, StdioConfig{StartupGrace: 500 * time.Millisecond})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrLaunch)
		assert.Contains(t, err.Error(), "boom: bad flag")
	})
}

func TestStdioTransport_ReceiveTimeout(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `cat > /dev/null`, StdioConfig{ReceiveTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	defer tr.Close()

	start := time.Now()
	_, err = tr.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStdioTransport_ExitWhileReceiving(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `read line; exit 0`, StdioConfig{ReceiveTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Send(context.Background(), []byte("go")))

	start := time.Now()
	_, err = tr.Receive(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Less(t, time.Since(start), 5*time.Second)

	select {
	case <-tr.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("process did not exit")
	}

	err = tr.Send(context.Background(), []byte("again"))
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestStdioTransport_CloseKillsStubbornProcess(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `trap "" TERM; while true; do sleep 1; done`, StdioConfig{ShutdownGrace: 100 * time.Millisecond})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_ = tr.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	select {
	case <-tr.Done():
	default:
		t.Fatal("process still running after Close")
	}
}

func TestStdioTransport_CloseIdempotent(t *testing.T) {
	requirePosix(t)

	tr, err := NewStdioTransport(StdioConfig{Name: "cat", Command: "cat", StartupGrace: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())

	err = tr.Send(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestStdioTransport_EnvOverrides(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `echo "$ASK_TEST_VALUE"; cat > /dev/null`, StdioConfig{
		Env: map[string]string{"ASK_TEST_VALUE": "from-env"},
	})
	require.NoError(t, err)
	defer tr.Close()

	msg, err := tr.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", string(msg))
}

func TestStdioTransport_ReceiveHonorsContext(t *testing.T) {
	requirePosix(t)

	tr, err := shTransport(t, `cat > /dev/null`, StdioConfig{})
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = tr.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
