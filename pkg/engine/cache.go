package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-pugview/pkg/render/template"
	"github.com/goliatone/go-pugview/pkg/rewrite"
)

type cacheKey struct {
	path string
	mode rewrite.Mode
}

type cacheEntry struct {
	tmpl    template.Template
	modTime time.Time
}

// templateCache keeps compiled templates keyed by file and expression mode.
type templateCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func newTemplateCache() *templateCache {
	return &templateCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *templateCache) get(key cacheKey) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry, ok
}

func (c *templateCache) put(key cacheKey, entry cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry
}

func (c *templateCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[cacheKey]cacheEntry)
}

// load returns the compiled template for path, going through the memory and
// disk caches when caching is enabled.
func (e *Engine) load(ctx context.Context, path string) (template.Template, error) {
	cacheDir := e.options.stringValue(OptionCache)
	if cacheDir == "" {
		source, _, err := readTemplate(path)
		if err != nil {
			return nil, err
		}
		return e.compile(path, source)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("engine: %w: %s", ErrTemplateNotFound, path)
	}

	key := cacheKey{path: path, mode: e.Mode()}
	if entry, ok := e.cache.get(key); ok && entry.modTime.Equal(info.ModTime()) {
		return entry.tmpl, nil
	}

	code, err := e.cachedSource(ctx, cacheDir, key, info)
	if err != nil {
		return nil, err
	}
	tmpl, err := e.backend.Compile(path, code)
	if err != nil {
		return nil, err
	}
	e.cache.put(key, cacheEntry{tmpl: tmpl, modTime: info.ModTime()})
	return tmpl, nil
}

// cachedSource returns compiled source from the cache directory when it is
// at least as recent as the template, compiling and storing it otherwise.
func (e *Engine) cachedSource(ctx context.Context, cacheDir string, key cacheKey, info os.FileInfo) (string, error) {
	file := cacheFile(cacheDir, key)
	if cached, err := os.Stat(file); err == nil && !cached.ModTime().Before(info.ModTime()) {
		if data, err := os.ReadFile(file); err == nil {
			return string(data), nil
		}
	}

	source, _, err := readTemplate(key.path)
	if err != nil {
		return "", err
	}
	code, err := e.compileSource(key.path, source)
	if err != nil {
		return "", err
	}
	if err := atomic.WriteFile(file, strings.NewReader(code)); err != nil {
		e.logger(ctx).Warn("cache write failed", slog.String("template", key.path), slog.Any("error", err))
	}
	return code, nil
}

func cacheFile(cacheDir string, key cacheKey) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%016x.%s.tpl", xxhash.Sum64String(key.path), key.mode))
}

// CacheFailure records a template that could not be cached.
type CacheFailure struct {
	Path string
	Err  error
}

// CacheStats summarizes a CacheDirectory run.
type CacheStats struct {
	Success  int
	Errors   int
	Failures []CacheFailure
}

// CacheDirectory compiles every supported template below dir into the cache.
// Templates that fail to compile are counted, not returned as errors; the
// returned error is only set when the walk fails or ctx is cancelled.
func (e *Engine) CacheDirectory(ctx context.Context, dir string) (CacheStats, error) {
	var stats CacheStats

	cacheDir := e.options.stringValue(OptionCache)
	if cacheDir == "" {
		return stats, ErrCacheDisabled
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !e.Supports(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("engine: scan %s: %w", dir, err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := e.warm(gctx, cacheDir, file)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Errors++
				stats.Failures = append(stats.Failures, CacheFailure{Path: file, Err: err})
				e.logger(ctx).Warn("template not cached", slog.String("template", file), slog.Any("error", err))
				return nil
			}
			stats.Success++
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	sort.Slice(stats.Failures, func(i, j int) bool {
		return stats.Failures[i].Path < stats.Failures[j].Path
	})
	return stats, nil
}

// warm compiles path unconditionally and refreshes both caches.
func (e *Engine) warm(ctx context.Context, cacheDir, path string) error {
	source, info, err := readTemplate(path)
	if err != nil {
		return err
	}
	key := cacheKey{path: path, mode: e.Mode()}
	code, err := e.compileSource(path, source)
	if err != nil {
		return err
	}
	tmpl, err := e.backend.Compile(path, code)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(cacheFile(cacheDir, key), strings.NewReader(code)); err != nil {
		return fmt.Errorf("engine: write cache: %w", err)
	}
	e.cache.put(key, cacheEntry{tmpl: tmpl, modTime: info.ModTime()})
	e.logger(ctx).Debug("template cached", slog.String("template", path))
	return nil
}
