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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teradata-labs/ask/pkg/types"
	"go.uber.org/zap"
)

const (
	// DefaultStartupGrace is how long a freshly started process must stay
	// alive before it counts as launched.
	DefaultStartupGrace = 100 * time.Millisecond

	// DefaultShutdownGrace is how long Close waits for a graceful exit
	// after closing stdin before killing the process.
	DefaultShutdownGrace = 3 * time.Second

	// DefaultReceiveTimeout bounds a single Receive call.
	DefaultReceiveTimeout = 60 * time.Second

	stderrTailLines = 20
	messageBuffer   = 64
)

// StdioConfig configures a stdio transport.
type StdioConfig struct {
	// Name identifies the server in logs and errors.
	Name    string
	Command string
	Args    []string
	// Env entries override the inherited environment.
	Env map[string]string
	Dir string

	StartupGrace   time.Duration
	ShutdownGrace  time.Duration
	ReceiveTimeout time.Duration

	Logger *zap.Logger
}

// StdioTransport talks newline-delimited messages to a child process over
// its stdin and stdout. A single reader goroutine owns stdout so a Receive
// that times out never loses a message that arrives later.
type StdioTransport struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	logger *zap.Logger

	receiveTimeout time.Duration
	shutdownGrace  time.Duration

	messages chan []byte
	readDone chan struct{}
	readErr  error

	exited  chan struct{}
	waitErr error

	stderrDone chan struct{}
	stderrMu   sync.Mutex
	stderrTail []string

	writeMu   sync.Mutex
	closing   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewStdioTransport starts the configured command and returns a transport
// wired to its stdio. It fails with types.ErrLaunch when the command cannot
// be started or exits within the startup grace period.
func NewStdioTransport(config StdioConfig) (*StdioTransport, error) {
	if config.Command == "" {
		return nil, fmt.Errorf("%w: server %q: command is required", types.ErrLaunch, config.Name)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.StartupGrace <= 0 {
		config.StartupGrace = DefaultStartupGrace
	}
	if config.ShutdownGrace <= 0 {
		config.ShutdownGrace = DefaultShutdownGrace
	}
	if config.ReceiveTimeout <= 0 {
		config.ReceiveTimeout = DefaultReceiveTimeout
	}

	cmd := exec.Command(config.Command, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: server %q: stdin pipe: %v", types.ErrLaunch, config.Name, err)
	}

	// os.Pipe instead of StdoutPipe: Wait must not close the read ends
	// while the reader goroutines are still draining them.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: server %q: stdout pipe: %v", types.ErrLaunch, config.Name, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		_ = stdoutR.Close()
		_ = stdoutW.Close()
		return nil, fmt.Errorf("%w: server %q: stderr pipe: %v", types.ErrLaunch, config.Name, err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{stdoutR, stdoutW, stderrR, stderrW} {
			_ = f.Close()
		}
		return nil, fmt.Errorf("%w: server %q: start %s: %v", types.ErrLaunch, config.Name, config.Command, err)
	}
	_ = stdoutW.Close()
	_ = stderrW.Close()

	t := &StdioTransport{
		name:           config.Name,
		cmd:            cmd,
		stdin:          stdin,
		stdout:         stdoutR,
		logger:         config.Logger.With(zap.String("server", config.Name)),
		receiveTimeout: config.ReceiveTimeout,
		shutdownGrace:  config.ShutdownGrace,
		messages:       make(chan []byte, messageBuffer),
		readDone:       make(chan struct{}),
		exited:         make(chan struct{}),
		stderrDone:     make(chan struct{}),
		closing:        make(chan struct{}),
	}

	go t.monitorStderr(stderrR)
	go t.readLoop()
	go func() {
		t.waitErr = cmd.Wait()
		close(t.exited)
	}()

	select {
	case <-t.exited:
		// Give the stderr monitor a moment to collect the failure output.
		select {
		case <-t.stderrDone:
		case <-time.After(config.StartupGrace):
		}
		t.closed.Store(true)
		close(t.closing)
		_ = stdin.Close()
		_ = t.stdout.Close()
		return nil, fmt.Errorf("%w: server %q exited during startup (%v)%s",
			types.ErrLaunch, config.Name, t.waitErr, t.stderrSuffix())
	case <-time.After(config.StartupGrace):
	}

	t.logger.Info("MCP server started",
		zap.String("command", config.Command),
		zap.Strings("args", config.Args),
		zap.Int("pid", cmd.Process.Pid),
	)

	return t, nil
}

// Send writes one message followed by a newline.
func (t *StdioTransport) Send(ctx context.Context, message []byte) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: server %q: transport closed", types.ErrTransport, t.name)
	}
	select {
	case <-t.exited:
		return fmt.Errorf("%w: server %q: process exited (%v)", types.ErrTransport, t.name, t.waitErr)
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	frame := make([]byte, 0, len(message)+1)
	frame = append(frame, message...)
	frame = append(frame, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.stdin.Write(frame); err != nil {
		return fmt.Errorf("%w: server %q: write: %v", types.ErrTransport, t.name, err)
	}
	return nil
}

// Receive returns the next message, waiting at most the receive timeout.
func (t *StdioTransport) Receive(ctx context.Context) ([]byte, error) {
	timer := time.NewTimer(t.receiveTimeout)
	defer timer.Stop()

	select {
	case msg := <-t.messages:
		return msg, nil
	default:
	}

	select {
	case msg := <-t.messages:
		return msg, nil
	case <-t.readDone:
		// Drain anything the reader queued before it stopped.
		select {
		case msg := <-t.messages:
			return msg, nil
		default:
		}
		return nil, fmt.Errorf("%w: server %q: %v%s", types.ErrTransport, t.name, t.readErr, t.stderrSuffix())
	case <-timer.C:
		return nil, fmt.Errorf("%w: server %q: no message within %s", types.ErrTimeout, t.name, t.receiveTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes stdin, waits up to the shutdown grace for the process to
// exit and kills it otherwise. Safe to call more than once.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.closing)

		_ = t.stdin.Close()

		select {
		case <-t.exited:
		case <-time.After(t.shutdownGrace):
			t.logger.Warn("MCP server did not exit, killing",
				zap.Int("pid", t.cmd.Process.Pid),
				zap.Duration("grace", t.shutdownGrace),
			)
			_ = t.cmd.Process.Kill()
			<-t.exited
		}

		// Grandchildren may still hold stdout open.
		_ = t.stdout.Close()

		t.logger.Debug("MCP server stopped", zap.Error(t.waitErr))
	})
	return nil
}

// Done is closed when the process has exited.
func (t *StdioTransport) Done() <-chan struct{} {
	return t.exited
}

// Pid returns the process id of the server.
func (t *StdioTransport) Pid() int {
	return t.cmd.Process.Pid
}

func (t *StdioTransport) readLoop() {
	defer close(t.readDone)

	reader := bufio.NewReader(t.stdout)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if len(line) > 0 {
				select {
				case t.messages <- line:
				case <-t.closing:
					t.readErr = io.ErrClosedPipe
					return
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			t.readErr = err
			return
		}
	}
}

func (t *StdioTransport) monitorStderr(r *os.File) {
	defer close(t.stderrDone)
	defer r.Close()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		t.logger.Debug("MCP server stderr", zap.String("line", line))

		t.stderrMu.Lock()
		t.stderrTail = append(t.stderrTail, line)
		if len(t.stderrTail) > stderrTailLines {
			t.stderrTail = t.stderrTail[len(t.stderrTail)-stderrTailLines:]
		}
		t.stderrMu.Unlock()
	}
}

func (t *StdioTransport) stderrSuffix() string {
	t.stderrMu.Lock()
	defer t.stderrMu.Unlock()
	if len(t.stderrTail) == 0 {
		return ""
	}
	return ": " + strings.Join(t.stderrTail, "\n")
}
