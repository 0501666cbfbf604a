// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/entchat/internal/app"
	"github.com/jeranaias/entchat/internal/config"
)

// ReplCmd runs a line-oriented chat session.
type ReplCmd struct{}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of input per prompt.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// editingReader provides line editing and history through liner.
type editingReader struct {
	line        *liner.State
	historyFile string
}

func newEditingReader() *editingReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &editingReader{line: line}
	if dir, err := config.Dir(); err == nil {
		r.historyFile = filepath.Join(dir, "repl_history")
		if f, err := os.Open(r.historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *editingReader) Prompt(prompt string) (string, error) {
	return r.line.Prompt(prompt)
}

func (r *editingReader) AppendHistory(item string) {
	r.line.AppendHistory(item)
}

// Close saves input history with owner-only permissions.
func (r *editingReader) Close() {
	if r.historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
			if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				r.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	r.line.Close()
}

// plainReader reads lines from a non-terminal stream.
type plainReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *plainReader) AppendHistory(string) {}

// =============================================================================
// SESSION
// =============================================================================

type replSession struct {
	env   *Env
	app   *app.App
	panel string
	in    lineReader
}

// Run implements the repl command.
func (c *ReplCmd) Run(env *Env) error {
	a, err := env.App()
	if err != nil {
		return err
	}
	key, err := env.PanelKey(a)
	if err != nil {
		return err
	}

	var in lineReader
	if f, ok := env.In.(*os.File); ok && f == os.Stdin && IsTTY() {
		r := newEditingReader()
		defer r.Close()
		in = r
	} else {
		in = &plainReader{scanner: bufio.NewScanner(env.In), out: env.Out}
	}

	s := &replSession{env: env, app: a, panel: key, in: in}
	return s.loop()
}

func (s *replSession) prompt() string {
	return RenderConditional(UserStyle, s.panel+"> ")
}

func (s *replSession) loop() error {
	panel := s.app.Panel(s.panel)
	fmt.Fprintln(s.env.Out, RenderConditional(TitleStyle, panel.Title))
	fmt.Fprintln(s.env.Out, RenderConditional(DimStyle, "Type /help for commands, /quit to leave."))
	printThread(s.env.Out, s.app.Controller(s.panel).Store().ActiveThread(), panel)

	for {
		input, err := s.in.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.env.Out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		s.in.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			quit, err := s.command(input)
			if err != nil {
				fmt.Fprintf(s.env.Err, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := s.send(input); err != nil {
			fmt.Fprintf(s.env.Err, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
		}
	}
}

// send runs one exchange, streaming the answer. Failed exchanges already
// show the fallback reply, so only precondition errors are returned.
func (s *replSession) send(text string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	panel := s.app.Panel(s.panel)
	fmt.Fprint(s.env.Out, RenderConditional(AssistantStyle, panel.AssistantLabel+": "))

	printer := &streamPrinter{out: s.env.Out}
	res, err := s.app.Orchestrator(s.panel).RunWithProgress(ctx, text, printer.Progress)
	if res.EntryID == "" {
		fmt.Fprintln(s.env.Out)
		return err
	}
	printer.Finish(res)
	if err != nil {
		s.app.Logger.Debug("exchange failed in repl", "panel", s.panel, "error", err)
	}
	return nil
}

func (s *replSession) command(input string) (bool, error) {
	fields := strings.Fields(input)
	name, args := fields[0], fields[1:]
	ctrl := s.app.Controller(s.panel)

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		fmt.Fprintln(s.env.Out, replHelp)

	case "/new":
		if _, err := ctrl.NewConversation(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.env.Out, RenderConditional(DimStyle, "Started a new conversation."))
		printThread(s.env.Out, ctrl.Store().ActiveThread(), s.app.Panel(s.panel))

	case "/list", "/history":
		entries := ctrl.Store().Entries()
		if len(entries) == 0 {
			fmt.Fprintln(s.env.Out, RenderConditional(DimStyle, "No conversations yet"))
			break
		}
		for i, e := range entries {
			marker := "  "
			if e.ID == ctrl.Store().ActiveID() {
				marker = "* "
			}
			fmt.Fprintf(s.env.Out, "%s%2d. %s\n", marker, i+1, e.Title)
		}

	case "/open":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open <number|id>")
		}
		entry, err := resolveEntry(ctrl, args[0])
		if err != nil {
			return false, err
		}
		if err := ctrl.Select(context.Background(), entry.ID); err != nil {
			return false, err
		}
		printThread(s.env.Out, ctrl.Store().ActiveThread(), s.app.Panel(s.panel))

	case "/delete":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /delete <number|id>")
		}
		entry, err := resolveEntry(ctrl, args[0])
		if err != nil {
			return false, err
		}
		if err := ctrl.Delete(entry.ID); err != nil {
			return false, err
		}
		fmt.Fprintf(s.env.Out, "Deleted %q\n", entry.Title)

	case "/panel":
		if len(args) != 1 {
			fmt.Fprintf(s.env.Out, "Panels: %s\n", strings.Join(s.app.Config().PanelKeys(), ", "))
			break
		}
		if _, ok := s.app.Config().Panel(args[0]); !ok {
			return false, &NotFoundError{Resource: "panel", ID: args[0]}
		}
		s.panel = args[0]
		panel := s.app.Panel(s.panel)
		fmt.Fprintln(s.env.Out, RenderConditional(TitleStyle, panel.Title))
		printThread(s.env.Out, s.app.Controller(s.panel).Store().ActiveThread(), panel)

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

const replHelp = `Commands:
  /new              Start a new conversation
  /list             List conversations
  /open <n|id>      Switch to a conversation
  /delete <n|id>    Delete a conversation
  /panel [key]      Show panels or switch panel
  /quit             Leave`
