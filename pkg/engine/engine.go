package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-pugview/internal/layout"
	"github.com/goliatone/go-pugview/pkg/compiler"
	"github.com/goliatone/go-pugview/pkg/helpers"
	"github.com/goliatone/go-pugview/pkg/render/template"
	"github.com/goliatone/go-pugview/pkg/render/template/pongo"
	"github.com/goliatone/go-pugview/pkg/rewrite"
)

const tracerName = "github.com/goliatone/go-pugview/pkg/engine"

// reservedKeys cannot be passed as render parameters; the engine sets view
// itself and this is reserved for template engines that bind it.
var reservedKeys = []string{"view", "this"}

// inlineTemplate names templates rendered from strings in errors and logs.
const inlineTemplate = "inline"

// Engine renders Pug templates with framework helpers available as `view`.
type Engine struct {
	kernel    Kernel
	options   *optionStore
	compiler  compiler.Compiler
	backend   template.Backend
	helpers   *helpers.Registry
	rewriters map[rewrite.Mode]*rewrite.Rewriter
	app       *App
	log       *slog.Logger
	tracer    trace.Tracer

	filtersMu sync.RWMutex
	filters   map[string]template.FilterFunc

	cache *templateCache
}

// New builds an Engine for kernel. It creates the pug cache directory, scans
// the application tree for views and assets, and registers helpers.
func New(kernel Kernel, opts ...Option) (*Engine, error) {
	cfg := &config{
		table:              rewrite.DefaultTable(),
		expressionLanguage: "js",
		extensions:         []string{".pug"},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	appDir := strings.TrimSpace(kernel.RootDir)
	if appDir == "" {
		return nil, ErrRootDirRequired
	}

	cacheDir := ""
	if strings.TrimSpace(kernel.CacheDir) != "" {
		cacheDir = filepath.Join(kernel.CacheDir, "pug")
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("engine: create cache dir: %w", err)
		}
	}

	environment := kernel.environment()
	cacheOption := cacheDir
	if strings.HasPrefix(environment, "dev") {
		cacheOption = ""
	}

	rootDir := filepath.Dir(appDir)
	dirs := layout.Resolve(filepath.Join(rootDir, "src"), appDir)

	e := &Engine{
		kernel: kernel,
		options: newOptionStore(map[string]any{
			OptionAssetDirectory:     dirs.AssetDirectories,
			OptionBaseDir:            dirs.BaseDir,
			OptionCache:              cacheOption,
			OptionEnvironment:        environment,
			OptionExtension:          cfg.extensions,
			OptionOutputDirectory:    filepath.Join(rootDir, "web"),
			OptionPrettyPrint:        kernel.Debug,
			OptionExpressionLanguage: cfg.expressionLanguage,
		}),
		compiler: cfg.compiler,
		backend:  cfg.backend,
		helpers:  helpers.NewRegistry(),
		rewriters: map[rewrite.Mode]*rewrite.Rewriter{
			rewrite.ModePHP: rewrite.New(cfg.table, rewrite.ModePHP),
			rewrite.ModeJS:  rewrite.New(cfg.table, rewrite.ModeJS),
		},
		app: &App{
			Debug:       kernel.Debug,
			Environment: environment,
			tokens:      cfg.tokens,
		},
		log:     cfg.logger,
		filters: make(map[string]template.FilterFunc),
		cache:   newTemplateCache(),
	}

	if e.log == nil {
		e.log = slog.New(noopHandler{})
	}
	if e.compiler == nil {
		e.compiler = compiler.Jade()
	}

	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	e.tracer = tp.Tracer(tracerName)

	if e.backend == nil {
		backendOpts := []pongo.Option{pongo.WithName("pugview")}
		if isDir(dirs.BaseDir) {
			backendOpts = append(backendOpts, pongo.WithBaseDir(dirs.BaseDir))
		}
		backend, err := pongo.New(backendOpts...)
		if err != nil {
			return nil, fmt.Errorf("engine: create backend: %w", err)
		}
		e.backend = backend
	}
	if err := e.backend.GlobalContext(map[string]any{"app": e.app}); err != nil {
		return nil, fmt.Errorf("engine: share app: %w", err)
	}

	helpers.Install(e.helpers, cfg.services)
	for _, custom := range cfg.helpers {
		if _, err := e.helpers.Register(custom); err != nil {
			return nil, fmt.Errorf("engine: register helper: %w", err)
		}
	}

	e.log.Debug("pug engine ready",
		slog.String("base_dir", dirs.BaseDir),
		slog.String("cache", cacheOption),
		slog.String("environment", environment),
		slog.Any("helpers", e.helpers.Names()),
	)
	return e, nil
}

// App returns the value shared with templates as `app`.
func (e *Engine) App() *App {
	return e.app
}

// Backend returns the render backend the engine compiles against.
func (e *Engine) Backend() template.Backend {
	return e.backend
}

// Kernel returns the kernel the engine was built from.
func (e *Engine) Kernel() Kernel {
	return e.kernel
}

// GetOption returns the value of a known or custom option.
func (e *Engine) GetOption(name string) (any, error) {
	return e.options.get(name)
}

// SetOption updates a known option. Unknown names are rejected; use
// SetCustomOptions to add new ones.
func (e *Engine) SetOption(name string, value any) error {
	if err := e.options.set(name, value, false); err != nil {
		return err
	}
	e.optionsChanged(name)
	return nil
}

// SetOptions updates several known options. It stops at the first error.
func (e *Engine) SetOptions(values map[string]any) error {
	for name, value := range values {
		if err := e.SetOption(name, value); err != nil {
			return err
		}
	}
	return nil
}

// SetCustomOptions stores options under any name.
func (e *Engine) SetCustomOptions(values map[string]any) error {
	for name, value := range values {
		if err := e.options.set(name, value, true); err != nil {
			return err
		}
		e.optionsChanged(name)
	}
	return nil
}

func (e *Engine) optionsChanged(name string) {
	switch name {
	case OptionCache, OptionBaseDir:
		e.cache.reset()
	}
}

// Mode returns the expression language mode currently in effect.
func (e *Engine) Mode() rewrite.Mode {
	return rewrite.ParseMode(e.options.stringValue(OptionExpressionLanguage))
}

// PreRender rewrites helper calls in source for the current mode.
func (e *Engine) PreRender(source string) string {
	return e.rewriters[e.Mode()].Rewrite(source)
}

// Filter registers a template filter.
func (e *Engine) Filter(name string, fn template.FilterFunc) error {
	if err := e.backend.RegisterFilter(name, fn); err != nil {
		return fmt.Errorf("engine: filter %q: %w", name, err)
	}

	e.filtersMu.Lock()
	e.filters[name] = fn
	e.filtersMu.Unlock()
	return nil
}

// HasFilter reports whether a filter was registered through Filter.
func (e *Engine) HasFilter(name string) bool {
	e.filtersMu.RLock()
	defer e.filtersMu.RUnlock()

	_, ok := e.filters[name]
	return ok
}

// GetFilter returns the filter registered under name.
func (e *Engine) GetFilter(name string) (template.FilterFunc, bool) {
	e.filtersMu.RLock()
	defer e.filtersMu.RUnlock()

	fn, ok := e.filters[name]
	return fn, ok
}

// Helpers returns the helper registry backing `view`.
func (e *Engine) Helpers() *helpers.Registry {
	return e.helpers
}

// Helper returns the helper registered under name.
func (e *Engine) Helper(name string) (any, bool) {
	return e.helpers.Get(name)
}

// SetHelper registers helper under name.
func (e *Engine) SetHelper(name string, helper any) {
	e.helpers.Set(name, helper)
}

// HasHelper reports whether a helper is registered under name.
func (e *Engine) HasHelper(name string) bool {
	return e.helpers.Has(name)
}

// UnsetHelper removes the helper registered under name.
func (e *Engine) UnsetHelper(name string) {
	e.helpers.Unset(name)
}

// FileFromName maps a template name to a file. Plain names resolve under
// the kernel's Resources/views; "Bundle:dir:file.pug" resolves under the
// bundle's Resources/views/dir, with an empty dir allowed ("Bundle::file.pug").
// Unknown bundles fall back to the kernel root.
func (e *Engine) FileFromName(name string) (string, error) {
	parts := strings.Split(name, ":")
	dir := e.kernel.RootDir
	if len(parts) > 1 {
		if len(parts) != 3 {
			return "", fmt.Errorf("engine: %w: %q", ErrInvalidTemplateName, name)
		}
		name = parts[2]
		if parts[1] != "" {
			name = filepath.Join(parts[1], name)
		}
		if bundleDir, ok := e.kernel.Bundles[parts[0]]; ok && bundleDir != "" {
			dir = bundleDir
		}
	}
	return filepath.Join(dir, "Resources", "views", name), nil
}

// Exists reports whether the template file for name exists.
func (e *Engine) Exists(name string) bool {
	path, err := e.FileFromName(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Supports reports whether name ends with one of the configured extensions.
func (e *Engine) Supports(name string) bool {
	for _, ext := range e.options.stringList(OptionExtension) {
		if ext != "" && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Render renders the template name with params. The rendered output is
// returned and also written to every writer in out.
func (e *Engine) Render(ctx context.Context, name string, params map[string]any, out ...io.Writer) (string, error) {
	ctx, span := e.tracer.Start(ctx, "pugview.Render", trace.WithAttributes(
		attribute.String("pugview.template", name),
	))
	defer span.End()

	rendered, err := e.render(ctx, name, params, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger(ctx).Error("render failed", slog.String("template", name), slog.Any("error", err))
		return "", err
	}
	return rendered, nil
}

func (e *Engine) render(ctx context.Context, name string, params map[string]any, out []io.Writer) (string, error) {
	data, err := e.prepare(params)
	if err != nil {
		return "", err
	}
	path, err := e.FileFromName(name)
	if err != nil {
		return "", err
	}
	tmpl, err := e.load(ctx, path)
	if err != nil {
		return "", err
	}
	return execute(tmpl, data, out)
}

// RenderString renders inline Pug source with params.
func (e *Engine) RenderString(ctx context.Context, source string, params map[string]any, out ...io.Writer) (string, error) {
	ctx, span := e.tracer.Start(ctx, "pugview.RenderString")
	defer span.End()

	rendered, err := e.renderString(source, params, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger(ctx).Error("render failed", slog.String("template", inlineTemplate), slog.Any("error", err))
		return "", err
	}
	return rendered, nil
}

func (e *Engine) renderString(source string, params map[string]any, out []io.Writer) (string, error) {
	data, err := e.prepare(params)
	if err != nil {
		return "", err
	}
	tmpl, err := e.compile(inlineTemplate, []byte(source))
	if err != nil {
		return "", err
	}
	return execute(tmpl, data, out)
}

func (e *Engine) prepare(params map[string]any) (map[string]any, error) {
	for _, key := range reservedKeys {
		if _, ok := params[key]; ok {
			return nil, &ForbiddenKeyError{Key: key}
		}
	}

	data := make(map[string]any, len(params)+1)
	for key, value := range params {
		data[key] = value
	}
	data["view"] = e.helpers.Snapshot()
	return data, nil
}

// compile runs the full source pipeline for one template.
func (e *Engine) compile(name string, source []byte) (template.Template, error) {
	code, err := e.compileSource(name, source)
	if err != nil {
		return nil, err
	}
	return e.backend.Compile(name, code)
}

func (e *Engine) compileSource(name string, source []byte) (string, error) {
	rewritten := e.PreRender(string(source))
	code, err := e.compiler.Compile(name, []byte(rewritten))
	if err != nil {
		return "", fmt.Errorf("engine: compile %q: %w", name, err)
	}
	return code, nil
}

func execute(tmpl template.Template, data map[string]any, out []io.Writer) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(data, &buf); err != nil {
		return "", err
	}

	rendered := buf.String()
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", err
		}
	}
	return rendered, nil
}

func readTemplate(path string) ([]byte, os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("engine: %w: %s", ErrTemplateNotFound, path)
		}
		return nil, nil, fmt.Errorf("engine: stat template: %w", err)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: read template: %w", err)
	}
	return source, info, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
