// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/jeranaias/entchat/internal/app"
	"github.com/jeranaias/entchat/internal/config"
	"github.com/jeranaias/entchat/internal/logging"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config string `help:"Config file path." type:"path" env:"ENTCHAT_CONFIG"`
	Panel  string `help:"Chat panel key." short:"P"`
	Debug  bool   `help:"Enable debug logging."`
	JSON   bool   `help:"Print JSON where supported." name:"json"`
}

// CLI is the kong grammar.
type CLI struct {
	Globals

	TUI     TUICmd     `cmd:"" name:"tui" default:"1" help:"Run the interactive terminal UI."`
	Ask     AskCmd     `cmd:"" help:"Send one message and print the answer."`
	Repl    ReplCmd    `cmd:"" help:"Line-oriented chat session."`
	History HistoryCmd `cmd:"" help:"Inspect and manage conversation history."`
	Whoami  WhoamiCmd  `cmd:"" help:"Show the user identity and session."`
	Version VersionCmd `cmd:"" help:"Print version information."`
}

// =============================================================================
// RUNTIME ENVIRONMENT
// =============================================================================

// Env is bound into every command's Run method.
type Env struct {
	Globals *Globals
	In      io.Reader
	Out     io.Writer
	Err     io.Writer

	// Load overrides config loading. Used by tests.
	Load func(path string) (*config.Config, error)

	cfgPath string
	app     *app.App
	closers []io.Closer
}

// ConfigPath returns the resolved config file path.
func (e *Env) ConfigPath() (string, error) {
	if e.cfgPath != "" {
		return e.cfgPath, nil
	}
	if e.Globals.Config != "" {
		e.cfgPath = e.Globals.Config
		return e.cfgPath, nil
	}
	path, err := config.Path()
	if err != nil {
		return "", err
	}
	e.cfgPath = path
	return path, nil
}

// App loads configuration, sets up logging and opens the store on first
// use.
func (e *Env) App() (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}

	path, err := e.ConfigPath()
	if err != nil {
		return nil, err
	}
	load := e.Load
	if load == nil {
		load = config.LoadFromPath
	}
	cfg, err := load(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}

	logger, err := e.setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	e.app = a
	e.closers = append(e.closers, a)
	return a, nil
}

func (e *Env) setupLogging(cfg *config.Config) (*slog.Logger, error) {
	logPath, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	logger, closer, err := logging.Setup(logging.Options{
		Path:       logPath,
		Level:      cfg.Log.Level,
		Debug:      e.Globals.Debug,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(e.Err, "Warning: logging disabled: %v\n", err)
		return logging.Discard(), nil
	}
	e.closers = append(e.closers, closer)
	return logger, nil
}

// PanelKey returns the selected panel, defaulting to the first configured
// one.
func (e *Env) PanelKey(a *app.App) (string, error) {
	cfg := a.Config()
	if e.Globals.Panel == "" {
		return cfg.Panels[0].Key, nil
	}
	if _, ok := cfg.Panel(e.Globals.Panel); !ok {
		return "", &NotFoundError{Resource: "panel", ID: e.Globals.Panel}
	}
	return e.Globals.Panel, nil
}

// Close releases the app and log file in reverse order of creation.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
	e.closers = nil
	e.app = nil
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// NewParser builds the kong parser for c writing help to out.
func NewParser(c *CLI, out io.Writer, exit func(int)) (*kong.Kong, error) {
	return kong.New(c,
		kong.Name("entchat"),
		kong.Description("Streaming chat client with persisted conversation history."),
		kong.UsageOnError(),
		kong.Writers(out, out),
		kong.Exit(exit),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
}

// Main parses args, runs the selected command and returns the exit code.
func Main(args []string) int {
	var c CLI
	parser, err := NewParser(&c, os.Stdout, os.Exit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitGeneralError
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return ExitUsageError
	}

	env := &Env{Globals: &c.Globals, In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
	defer env.Close()

	if err := ctx.Run(env); err != nil {
		fmt.Fprintln(os.Stderr, RenderConditional(ErrorStyle, "Error: ")+err.Error())
		return GetExitCode(err)
	}
	return ExitSuccess
}
