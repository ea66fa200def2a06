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

package permission

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// defaultPreviewWidth is used when the output is not a terminal.
const defaultPreviewWidth = 120

// TerminalPrompter asks on a terminal: it prints the request and reads one
// line answered with y, a or anything else.
type TerminalPrompter struct {
	out     io.Writer
	verbose bool
	width   int

	startOnce sync.Once
	in        io.Reader
	lines     chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewTerminalPrompter reads answers from in and writes prompts to out.
// When verbose, auto-approved requests are announced as such.
func NewTerminalPrompter(in io.Reader, out io.Writer, verbose bool) *TerminalPrompter {
	width := defaultPreviewWidth
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w
		}
	}
	return &TerminalPrompter{
		out:     out,
		verbose: verbose,
		width:   width,
		in:      in,
		lines:   make(chan lineResult),
	}
}

// Ask prints the request and waits for an answer or ctx.
func (p *TerminalPrompter) Ask(ctx context.Context, req Request) (Answer, error) {
	p.startOnce.Do(func() { go p.readLines() })

	fmt.Fprintf(p.out, "%s\nExecute '%s'? [y/N/A]: ", Describe(req, p.width), req.Tool)

	select {
	case r := <-p.lines:
		if r.err != nil {
			fmt.Fprintln(p.out)
			return AnswerDeny, r.err
		}
		return ParseAnswer(r.line), nil
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return AnswerDeny, ctx.Err()
	}
}

// Notify implements Notifier.
func (p *TerminalPrompter) Notify(req Request, state State) {
	if state != AutoApproved {
		return
	}
	if p.verbose {
		fmt.Fprintf(p.out, "%s\n[Auto-approved]\n", Describe(req, p.width))
		return
	}
	fmt.Fprintln(p.out, Describe(req, p.width))
}

// readLines owns the input for the prompter's lifetime so an abandoned
// prompt never leaves a reader racing the next one.
func (p *TerminalPrompter) readLines() {
	r := bufio.NewReader(p.in)
	for {
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			// The error is sticky: every later prompt sees it too.
			for {
				p.lines <- lineResult{err: err}
			}
		}
		p.lines <- lineResult{line: line}
	}
}

// ParseAnswer maps operator input to an Answer.
func ParseAnswer(input string) Answer {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return AnswerOnce
	case "a", "all", "always":
		return AnswerAlways
	default:
		return AnswerDeny
	}
}

// Describe renders a request for the operator. Long lines are cut to width.
func Describe(req Request, width int) string {
	var text string
	if cmd, ok := req.Arguments["command"].(string); ok && !req.Remote {
		text = cmd
		if dir, ok := req.Arguments["working_directory"].(string); ok && dir != "" && dir != "." {
			text = fmt.Sprintf("%s (in %s)", cmd, dir)
		}
	} else {
		args := "{}"
		if len(req.Arguments) > 0 {
			if data, err := json.MarshalIndent(req.Arguments, "", "  "); err == nil {
				args = string(data)
			}
		}
		text = fmt.Sprintf("Executing %s\nArguments:\n%s", req.Tool, args)
	}
	return clip(text, width)
}

func clip(text string, width int) string {
	if width <= 3 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if r := []rune(l); len(r) > width {
			lines[i] = string(r[:width-3]) + "..."
		}
	}
	return strings.Join(lines, "\n")
}
