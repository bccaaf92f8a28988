// Package pugview renders Pug views with framework helpers exposed to
// templates as `view`.
//
// Helper calls written as plain functions in templates are rewritten before
// compilation:
//
//	a(href=asset("css/site.css"))  ->  a(href=view.assets.getUrl("css/site.css"))
//
// The root package re-exports the pieces most callers need; the engine,
// helpers, rewrite and publish packages hold the full API.
package pugview

import (
	"context"

	"github.com/goliatone/go-pugview/pkg/engine"
	"github.com/goliatone/go-pugview/pkg/publish"
	"github.com/goliatone/go-pugview/pkg/rewrite"
)

// Kernel describes the application tree the engine serves.
type Kernel = engine.Kernel

// Engine renders templates; alias exported via the root package for
// convenience.
type Engine = engine.Engine

// Option configures an Engine.
type Option = engine.Option

// Report summarizes a Publish run.
type Report = publish.Report

// New builds an Engine for kernel.
func New(kernel Kernel, opts ...Option) (*Engine, error) {
	return engine.New(kernel, opts...)
}

// Publish warms the template cache of every views directory next to the
// engine's asset directories.
func Publish(ctx context.Context, eng *Engine) (Report, error) {
	return publish.Run(ctx, eng)
}

// Rewrite substitutes helper calls in source using the default helper table.
// lang is "js" or "php".
func Rewrite(source, lang string) string {
	return rewrite.Rewrite(source, rewrite.DefaultTable(), rewrite.ParseMode(lang))
}
