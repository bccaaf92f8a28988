package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goliatone/go-pugview/pkg/engine"
	"github.com/goliatone/go-pugview/pkg/publish"
	"github.com/goliatone/go-pugview/pkg/rewrite"
)

// PublishCmd caches the views next to every configured assets directory.
type PublishCmd struct {
	Yes bool `help:"Do not ask for confirmation." short:"y"`
}

// Run executes the publish command.
func (c *PublishCmd) Run(ctx context.Context, rt *runtime) error {
	eng, ctx, err := rt.engine(ctx)
	if err != nil {
		return err
	}

	if !c.Yes && rt.interactive {
		output, _ := eng.GetOption(engine.OptionOutputDirectory)
		ok, err := rt.confirm(ctx, fmt.Sprintf("Compile templates and publish assets to %v?", output))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(rt.stdout, "Aborted.")
			return nil
		}
	}

	report, err := publish.Run(ctx, eng)
	if err != nil {
		return err
	}
	for _, line := range report.Lines() {
		fmt.Fprintln(rt.stdout, line)
	}
	for _, failure := range report.Failures {
		rt.logger.Warn("template failed", slog.String("template", failure.Path), slog.Any("error", failure.Err))
	}
	return nil
}

// RenderCmd renders one template.
type RenderCmd struct {
	Name   string            `arg:"" help:"Template name (file.pug or Bundle:dir:file.pug)."`
	Params map[string]string `help:"Template parameter as key=value." short:"p"`
}

// Run executes the render command.
func (c *RenderCmd) Run(ctx context.Context, rt *runtime) error {
	eng, ctx, err := rt.engine(ctx)
	if err != nil {
		return err
	}

	params := make(map[string]any, len(c.Params))
	for key, value := range c.Params {
		params[key] = value
	}
	_, err = eng.Render(ctx, c.Name, params, rt.stdout)
	return err
}

// RewriteCmd prints template source after helper substitution.
type RewriteCmd struct {
	Source string `arg:"" default:"-" help:"Template file or '-' for stdin."`
	Mode   string `default:"js" enum:"js,php" help:"Expression language of the output."`
}

// Run executes the rewrite command.
func (c *RewriteCmd) Run(rt *runtime) error {
	var (
		data []byte
		err  error
	)
	if c.Source == "-" {
		data, err = io.ReadAll(rt.stdin)
	} else {
		data, err = os.ReadFile(c.Source)
	}
	if err != nil {
		return err
	}

	out := rewrite.Rewrite(string(data), rewrite.DefaultTable(), rewrite.ParseMode(c.Mode))
	_, err = io.WriteString(rt.stdout, out)
	return err
}
