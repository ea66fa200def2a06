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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/teradata-labs/ask/internal/session"
	"github.com/teradata-labs/ask/pkg/types"
	"golang.org/x/term"
)

const defaultShowWidth = 80

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "List, show and save conversations",
		Long: `Every question is saved as a session: under the --session name when given,
otherwise as "last". Continue a session with ask --session <name> ...`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sessions, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSessions(cmd.Context(), func(ctx context.Context, s *session.Store) error {
					list, err := s.List(ctx)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if len(list) == 0 {
						fmt.Fprintln(out, "No sessions yet.")
						return nil
					}
					now := time.Now()
					for _, info := range list {
						fmt.Fprintf(out, "%-20s %-18s %d messages\n", info.Name, session.RelativeTime(info.UpdatedAt, now), info.MessageCount)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "show [name]",
			Short: "Show the conversation of a session (default: the last one)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSessions(cmd.Context(), func(ctx context.Context, s *session.Store) error {
					name, err := sessionOrLast(ctx, s, args)
					if err != nil {
						return err
					}
					msgs, err := s.Load(ctx, name)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					renderSession(out, name, msgs, showWidth(out))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "save <name>",
			Short: "Save the last conversation under a name",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSessions(cmd.Context(), func(ctx context.Context, s *session.Store) error {
					from, err := sessionOrLast(ctx, s, nil)
					if err != nil {
						return err
					}
					if err := s.Copy(ctx, from, args[0]); err != nil {
						if errors.Is(err, session.ErrNotFound) {
							return fmt.Errorf("no session to save")
						}
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Saved session as %s\n", args[0])
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSessions(cmd.Context(), func(ctx context.Context, s *session.Store) error {
					if err := s.Delete(ctx, args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func (a *app) withSessions(ctx context.Context, fn func(context.Context, *session.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := sessionsPath()
	if err != nil {
		return err
	}
	s, err := session.Open(ctx, session.Config{Path: path})
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	defer s.Close()
	return fn(ctx, s)
}

// sessionOrLast returns the named session, or the last one saved.
func sessionOrLast(ctx context.Context, s *session.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	name, err := s.Last(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return session.DefaultName, nil
	}
	return name, err
}

// showWidth returns the terminal width of w, or defaultShowWidth when w is
// not a terminal.
func showWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultShowWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		return defaultShowWidth
	}
	return width
}

type showStyles struct {
	base      lipgloss.Style
	header    lipgloss.Style
	user      lipgloss.Style
	tool      lipgloss.Style
	assistant lipgloss.Style
}

// newShowStyles binds styles to a renderer for w, so colors are dropped
// when w is not a terminal or NO_COLOR is set.
func newShowStyles(w io.Writer) showStyles {
	r := lipgloss.NewRenderer(w)
	return showStyles{
		base:      r.NewStyle(),
		header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
		user:      r.NewStyle().Foreground(lipgloss.Color("6")),
		tool:      r.NewStyle().Foreground(lipgloss.Color("3")),
		assistant: r.NewStyle().Foreground(lipgloss.Color("2")),
	}
}

// renderSession prints user and assistant turns as labeled blocks. User
// turns are indented to the right, as in a chat window.
func renderSession(w io.Writer, name string, msgs []types.Message, width int) {
	st := newShowStyles(w)

	header := st.header.Width(width).Align(lipgloss.Center).Render(fmt.Sprintf("=== Session: %s ===", name))
	fmt.Fprintf(w, "\n%s\n\n", header)

	for _, msg := range msgs {
		switch msg.Role {
		case types.RoleUser:
			renderBlock(w, st, st.user, "User", msg.Content, width, width*2/5)
		case types.RoleAssistant:
			for _, call := range msg.ToolCalls {
				renderBlock(w, st, st.tool, "Tool", call.Name, width, 2)
			}
			if strings.TrimSpace(msg.Content) != "" {
				renderBlock(w, st, st.assistant, "Assistant", msg.Content, width, 2)
			}
		}
	}
}

func renderBlock(w io.Writer, st showStyles, style lipgloss.Style, label, text string, width, indent int) {
	title := style.Bold(true).Render(label)
	body := st.base.
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(style.GetForeground()).
		PaddingLeft(1).
		Width(max(20, width-indent-1)).
		Render(strings.TrimRight(text, "\n"))

	block := lipgloss.JoinVertical(lipgloss.Left, title, body)
	fmt.Fprintf(w, "%s\n\n", st.base.MarginLeft(indent).Render(block))
}
