package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-pugview/pkg/compiler"
	"github.com/goliatone/go-pugview/pkg/helpers"
	"github.com/goliatone/go-pugview/pkg/render/template"
	"github.com/goliatone/go-pugview/pkg/rewrite"
)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	compiler           compiler.Compiler
	backend            template.Backend
	table              rewrite.Table
	services           helpers.Services
	helpers            []any
	tokens             TokenStorage
	logger             *slog.Logger
	tracerProvider     trace.TracerProvider
	expressionLanguage string
	extensions         []string
}

// WithCompiler overrides the Pug compiler (defaults to compiler.Jade).
func WithCompiler(c compiler.Compiler) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.compiler = c
		}
	}
}

// WithBackend overrides the render backend (defaults to pongo2).
func WithBackend(b template.Backend) Option {
	return func(cfg *config) {
		if b != nil {
			cfg.backend = b
		}
	}
}

// WithTable replaces the helper substitution table.
func WithTable(table rewrite.Table) Option {
	return func(cfg *config) {
		if len(table) > 0 {
			cfg.table = table
		}
	}
}

// WithServices exposes framework services as built-in helpers.
func WithServices(services helpers.Services) Option {
	return func(cfg *config) {
		cfg.services = services
	}
}

// WithHelpers registers custom helpers under names derived from their types.
func WithHelpers(custom ...any) Option {
	return func(cfg *config) {
		cfg.helpers = append(cfg.helpers, custom...)
	}
}

// WithTokenStorage feeds app.User() in templates.
func WithTokenStorage(tokens TokenStorage) Option {
	return func(cfg *config) {
		cfg.tokens = tokens
	}
}

// WithLogger sets the engine logger. Without it the engine is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for render spans.
// The global provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.tracerProvider = tp
	}
}

// WithExpressionLanguage sets the initial expressionLanguage option.
func WithExpressionLanguage(lang string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(lang); trimmed != "" {
			cfg.expressionLanguage = trimmed
		}
	}
}

// WithExtensions sets the template extensions the engine supports.
func WithExtensions(exts ...string) Option {
	return func(cfg *config) {
		if normalized := normalizeExtensions(exts); len(normalized) > 0 {
			cfg.extensions = normalized
		}
	}
}

// Names of the options understood by GetOption and SetOption.
const (
	OptionAssetDirectory     = "assetDirectory"
	OptionBaseDir            = "baseDir"
	OptionCache              = "cache"
	OptionEnvironment        = "environment"
	OptionExtension          = "extension"
	OptionOutputDirectory    = "outputDirectory"
	OptionPrettyPrint        = "prettyprint"
	OptionExpressionLanguage = "expressionLanguage"
)

// optionStore holds the engine options by name. Known options are type
// checked on write; custom options accept any value.
type optionStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func newOptionStore(values map[string]any) *optionStore {
	return &optionStore{values: values}
}

func (s *optionStore) get(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[name]
	if !ok {
		return nil, &OptionError{Name: name}
	}
	return value, nil
}

func (s *optionStore) set(name string, value any, custom bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[name]; !ok && !custom {
		return &OptionError{Name: name}
	}
	normalized, err := normalizeOption(name, value)
	if err != nil {
		return err
	}
	s.values[name] = normalized
	return nil
}

func (s *optionStore) stringValue(name string) string {
	value, _ := s.get(name)
	str, _ := value.(string)
	return str
}

func (s *optionStore) stringList(name string) []string {
	value, _ := s.get(name)
	list, _ := value.([]string)
	return append([]string(nil), list...)
}

func normalizeOption(name string, value any) (any, error) {
	switch name {
	case OptionBaseDir, OptionCache, OptionEnvironment, OptionOutputDirectory, OptionExpressionLanguage:
		switch v := value.(type) {
		case string:
			return v, nil
		case nil:
			return "", nil
		case bool:
			// false turns string options such as cache off.
			if v {
				return nil, fmt.Errorf("engine: option %q expects a string or false", name)
			}
			return "", nil
		default:
			return nil, fmt.Errorf("engine: option %q expects a string, got %T", name, value)
		}
	case OptionAssetDirectory:
		return toStrings(name, value)
	case OptionExtension:
		list, err := toStrings(name, value)
		if err != nil {
			return nil, err
		}
		return normalizeExtensions(list), nil
	case OptionPrettyPrint:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("engine: option %q expects a bool, got %T", name, value)
		}
		return b, nil
	}
	return value, nil
}

func toStrings(name string, value any) ([]string, error) {
	switch v := value.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("engine: option %q expects strings, got %T", name, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("engine: option %q expects a string list, got %T", name, value)
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
