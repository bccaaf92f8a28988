// Package publish warms the template cache for every views directory that
// sits next to a configured assets directory.
package publish

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goliatone/go-pugview/internal/layout"
	"github.com/goliatone/go-pugview/pkg/engine"
)

// Cacher is the engine surface Run needs.
type Cacher interface {
	GetOption(name string) (any, error)
	CacheDirectory(ctx context.Context, dir string) (engine.CacheStats, error)
}

var _ Cacher = (*engine.Engine)(nil)

// Report summarizes a publish run.
type Report struct {
	Directories []string
	Success     int
	Errors      int
	Failures    []engine.CacheFailure
}

// Lines renders the report as console lines.
func (r Report) Lines() []string {
	noun := "directories"
	if len(r.Directories) == 1 {
		noun = "directory"
	}
	return []string{
		fmt.Sprintf("%d %s scanned: %s.", len(r.Directories), noun, strings.Join(r.Directories, ", ")),
		fmt.Sprintf("%d templates cached.", r.Success),
		fmt.Sprintf("%d templates failed to be cached.", r.Errors),
	}
}

// Run caches the views directory of every asset directory configured on
// eng. Asset directories without a views sibling are skipped.
func Run(ctx context.Context, eng Cacher) (Report, error) {
	var report Report

	value, err := eng.GetOption(engine.OptionAssetDirectory)
	if err != nil {
		return report, fmt.Errorf("publish: %w", err)
	}
	assetDirs, ok := value.([]string)
	if !ok {
		return report, fmt.Errorf("publish: asset directories: unexpected %T", value)
	}

	for _, assetDir := range assetDirs {
		views := layout.ViewsFor(assetDir)
		if info, err := os.Stat(views); err != nil || !info.IsDir() {
			continue
		}
		report.Directories = append(report.Directories, views)

		stats, err := eng.CacheDirectory(ctx, views)
		if err != nil {
			return report, fmt.Errorf("publish: cache %s: %w", views, err)
		}
		report.Success += stats.Success
		report.Errors += stats.Errors
		report.Failures = append(report.Failures, stats.Failures...)
	}
	return report, nil
}
