package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/goliatone/go-pugview/pkg/config"
	"github.com/goliatone/go-pugview/pkg/engine"
)

const (
	appName        = "pugview"
	appDescription = "Render Pug views with framework helpers and publish their compiled cache."
)

// CLI is the top-level command-line interface.
type CLI struct {
	Config string   `help:"Configuration file (YAML)." short:"c" type:"path"`
	Env    string   `help:"Override the kernel environment."`
	Debug  bool     `help:"Enable kernel debug mode."`
	Log    logFlags `embed:"" group:"log" prefix:"log-"`

	Publish PublishCmd `cmd:"" aliases:"assets:publish" help:"Export your assets in the web directory."`
	Render  RenderCmd  `cmd:"" help:"Render a template to stdout."`
	Rewrite RewriteCmd `cmd:"" help:"Print template source with helper calls rewritten."`
}

// app carries the process streams and the prompt used by commands.
type app struct {
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	interactive bool
	confirm     func(ctx context.Context, message string) (bool, error)
}

func newApp(stdin *os.File, stdout, stderr io.Writer) *app {
	return &app{
		stdin:       stdin,
		stdout:      stdout,
		stderr:      stderr,
		interactive: isTerminal(stdin),
		confirm:     surveyConfirm,
	}
}

// Run parses args and executes the selected command.
func (a *app) Run(ctx context.Context, exit func(int), args ...string) error {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name(appName),
		kong.Description(appDescription),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.Writers(a.stdout, a.stderr),
		kong.ExplicitGroups([]kong.Group{{Key: "log", Title: "Logging options"}}),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true, Summary: true}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	rt := &runtime{app: a, cli: &cli}
	return ktx.Run(rt)
}

// runtime is bound into every command's Run method.
type runtime struct {
	*app
	cli *CLI

	cfg    *config.Config
	logger *slog.Logger
}

func (rt *runtime) config() (config.Config, error) {
	if rt.cfg != nil {
		return *rt.cfg, nil
	}

	cfg := config.Default()
	if rt.cli.Config != "" {
		loaded, err := config.Load(rt.cli.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if env := strings.TrimSpace(rt.cli.Env); env != "" {
		cfg.Kernel.Environment = env
	}
	if rt.cli.Debug {
		cfg.Kernel.Debug = true
	}
	rt.cfg = &cfg
	return cfg, nil
}

func (rt *runtime) log() (*slog.Logger, error) {
	if rt.logger != nil {
		return rt.logger, nil
	}
	cfg, err := rt.config()
	if err != nil {
		return nil, err
	}
	logger, err := rt.cli.Log.logger(rt.stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	rt.logger = logger
	return logger, nil
}

func (rt *runtime) engine(ctx context.Context) (*engine.Engine, context.Context, error) {
	cfg, err := rt.config()
	if err != nil {
		return nil, ctx, err
	}
	logger, err := rt.log()
	if err != nil {
		return nil, ctx, err
	}

	opts := append(cfg.EngineOptions(), engine.WithLogger(logger))
	eng, err := engine.New(cfg.EngineKernel(), opts...)
	if err != nil {
		return nil, ctx, err
	}
	return eng, engine.LoggingContext(ctx, logger), nil
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func surveyConfirm(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var ok bool
	prompt := &survey.Confirm{Message: message, Default: true}
	if err := survey.AskOne(prompt, &ok); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return false, nil
		}
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}
