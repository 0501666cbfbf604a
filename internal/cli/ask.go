// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/jeranaias/entchat/internal/app"
	"github.com/jeranaias/entchat/internal/exchange"
	"github.com/jeranaias/entchat/internal/ui/styles"
)

// AskCmd sends one message on the selected panel.
type AskCmd struct {
	Message []string `arg:"" required:"" help:"Message to send."`
	Render  bool     `help:"Render the final answer as Markdown instead of streaming it."`
}

type askOutput struct {
	EntryID        string `json:"entryId"`
	ConversationID string `json:"conversationId,omitempty"`
	Text           string `json:"text"`
	Failed         bool   `json:"failed"`
	Error          string `json:"error,omitempty"`
}

// Run implements the ask command.
func (c *AskCmd) Run(env *Env) error {
	a, err := env.App()
	if err != nil {
		return err
	}
	key, err := env.PanelKey(a)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	text := strings.Join(c.Message, " ")
	o := a.Orchestrator(key)

	if env.Globals.JSON {
		res, err := o.Run(ctx, text)
		if res.EntryID == "" && err != nil {
			return err
		}
		out := askOutput{
			EntryID:        res.EntryID,
			ConversationID: res.ConversationID,
			Text:           res.Text,
			Failed:         res.Failed,
		}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		if encErr := json.NewEncoder(env.Out).Encode(out); encErr != nil {
			return encErr
		}
		return err
	}

	if c.Render {
		res, err := o.Run(ctx, text)
		if res.EntryID == "" && err != nil {
			return err
		}
		printFinal(env.Out, a, res)
		return err
	}

	printer := &streamPrinter{out: env.Out}
	res, err := o.RunWithProgress(ctx, text, printer.Progress)
	if res.EntryID == "" && err != nil {
		return err
	}
	printer.Finish(res)
	return err
}

// printFinal writes a finished answer, rendering successful ones as
// Markdown.
func printFinal(out io.Writer, a *app.App, res exchange.Result) {
	if res.Failed {
		fmt.Fprintln(out, RenderConditional(WarningStyle, res.Text))
		return
	}
	if !ColorsEnabled() {
		fmt.Fprintln(out, res.Text)
		return
	}
	md, err := styles.NewMarkdown(HasDarkBackground(a.Config().UI.Theme), GetTerminalWidth()-4)
	if err != nil {
		fmt.Fprintln(out, res.Text)
		return
	}
	fmt.Fprintln(out, md.Render(res.Text))
}

// streamPrinter writes the paced placeholder text as it grows.
type streamPrinter struct {
	out     io.Writer
	printed string
}

// Progress prints the text added since the last call.
func (p *streamPrinter) Progress(ex *exchange.Exchange) {
	text := ex.Placeholder.Text
	if !strings.HasPrefix(text, p.printed) {
		return
	}
	fmt.Fprint(p.out, text[len(p.printed):])
	p.printed = text
}

// Finish prints whatever the final answer adds to the streamed text. When
// the final text diverges, it is printed in full on a new line.
func (p *streamPrinter) Finish(res exchange.Result) {
	switch {
	case res.Failed:
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, RenderConditional(WarningStyle, res.Text))
	case strings.HasPrefix(res.Text, p.printed):
		fmt.Fprintln(p.out, res.Text[len(p.printed):])
	case strings.TrimSpace(p.printed) == res.Text:
		fmt.Fprintln(p.out)
	default:
		if p.printed != "" {
			fmt.Fprintln(p.out)
		}
		fmt.Fprintln(p.out, res.Text)
	}
	p.printed = ""
}
