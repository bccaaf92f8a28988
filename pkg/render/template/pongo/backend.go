package pongo

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-pugview/pkg/render/template"
)

// Option configures the pongo2 backend before construction.
type Option func(*config)

type config struct {
	name       string
	baseDir    string
	globalData map[string]any
}

// WithName sets the pongo2 template set name used in error messages.
func WithName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}

// WithBaseDir sets the directory pongo2 resolves include and extends tags
// against.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Backend satisfies template.Backend using a pongo2 template set.
type Backend struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	filters     map[string]template.FilterFunc
}

var _ template.Backend = (*Backend)(nil)

// New constructs a Backend using the provided configuration options.
func New(options ...Option) (*Backend, error) {
	cfg := &config{
		name: "pugview",
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
	if err != nil {
		return nil, fmt.Errorf("pongo: create local loader: %w", err)
	}

	backend := &Backend{
		templateSet: pongo2.NewSet(cfg.name, loader),
		filters:     make(map[string]template.FilterFunc),
	}
	if err := registerDefaultFilters(); err != nil {
		return nil, fmt.Errorf("pongo: default filters: %w", err)
	}

	if err := backend.GlobalContext(map[string]any{"mt_rand": mtRand}); err != nil {
		return nil, err
	}
	if err := backend.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("pongo: apply global data: %w", err)
	}
	return backend, nil
}

// Compile parses source into an executable template.
func (b *Backend) Compile(name, source string) (template.Template, error) {
	if b == nil || b.templateSet == nil {
		return nil, errors.New("pongo: backend is nil")
	}

	tmpl, err := b.templateSet.FromString(source)
	if err != nil {
		return nil, fmt.Errorf("pongo: parse template %q: %w", name, err)
	}
	return &compiled{name: name, backend: b, tmpl: tmpl}, nil
}

// RegisterFilter registers fn as a pongo2 filter. pongo2 keeps filters in a
// process-wide table, so names already provided by pongo2 itself are refused
// while names registered through this package may be replaced.
func (b *Backend) RegisterFilter(name string, fn template.FilterFunc) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "filter:" + name, OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if err := installFilter(name, filter); err != nil {
		return err
	}

	b.mu.Lock()
	b.filters[name] = fn
	b.mu.Unlock()
	return nil
}

// HasFilter reports whether name was registered through this backend.
func (b *Backend) HasFilter(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.filters[name]
	return ok
}

// Filter returns the function registered under name.
func (b *Backend) Filter(name string) (template.FilterFunc, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	fn, ok := b.filters[name]
	return fn, ok
}

// GlobalContext seeds global data on the template set.
func (b *Backend) GlobalContext(data map[string]any) error {
	if b == nil || b.templateSet == nil {
		return errors.New("pongo: backend is nil")
	}
	if len(data) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.templateSet.Globals == nil {
		b.templateSet.Globals = make(pongo2.Context)
	}
	b.templateSet.Globals.Update(pongo2.Context(data))
	return nil
}

type compiled struct {
	name    string
	backend *Backend
	tmpl    *pongo2.Template
}

func (c *compiled) Execute(data map[string]any, out io.Writer) error {
	c.backend.mu.RLock()
	err := c.tmpl.ExecuteWriter(pongo2.Context(data), out)
	c.backend.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("pongo: execute template %q: %w", c.name, err)
	}
	return nil
}

// mtRand mirrors the random() template helper: no bounds yields any
// non-negative int, two bounds yield a value in [min, max]. The span is
// computed in uint64 so bounds near the int limits do not overflow.
func mtRand(bounds ...int) int {
	if len(bounds) < 2 {
		return rand.IntN(1 << 31)
	}
	low, high := int64(bounds[0]), int64(bounds[1])
	if high < low {
		low, high = high, low
	}
	span := uint64(high) - uint64(low)
	if span == math.MaxUint64 {
		return int(rand.Int64())
	}
	return int(low + int64(rand.Uint64N(span+1)))
}
