// Package config loads the YAML file the pugview command reads its kernel,
// helper and logging settings from.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-pugview/pkg/engine"
	"github.com/goliatone/go-pugview/pkg/helpers"
)

// ErrInvalidConfig is returned when a configuration document fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root of a pugview configuration file.
type Config struct {
	Kernel             KernelConfig      `yaml:"kernel"`
	ExpressionLanguage string            `yaml:"expression_language"`
	Assets             AssetsConfig      `yaml:"assets"`
	Routes             map[string]string `yaml:"routes"`
	Host               string            `yaml:"host"`
	Scheme             string            `yaml:"scheme"`
	BaseURL            string            `yaml:"base_url"`
	Log                LogConfig         `yaml:"log"`
}

// KernelConfig mirrors engine.Kernel.
type KernelConfig struct {
	RootDir     string            `yaml:"root_dir"`
	CacheDir    string            `yaml:"cache_dir"`
	Environment string            `yaml:"environment"`
	Debug       bool              `yaml:"debug"`
	Bundles     map[string]string `yaml:"bundles"`
}

// AssetsConfig configures the assets and css helpers.
type AssetsConfig struct {
	BasePath      string `yaml:"base_path"`
	Version       string `yaml:"version"`
	VersionFormat string `yaml:"version_format"`
}

// LogConfig selects the command's log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given: an app/
// directory with var/cache next to it, relative to the working directory.
func Default() Config {
	return Config{
		Kernel: KernelConfig{
			RootDir:     "app",
			CacheDir:    filepath.Join("var", "cache"),
			Environment: "prod",
		},
		ExpressionLanguage: "js",
		Assets: AssetsConfig{
			BasePath:      "/",
			VersionFormat: helpers.DefaultVersionFormat,
		},
		Scheme: "http",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file at path. Relative kernel directories are resolved
// against the directory holding the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.Kernel.RootDir = resolvePath(base, cfg.Kernel.RootDir)
	cfg.Kernel.CacheDir = resolvePath(base, cfg.Kernel.CacheDir)
	for name, dir := range cfg.Kernel.Bundles {
		cfg.Kernel.Bundles[name] = resolvePath(base, dir)
	}
	return cfg, nil
}

// Parse decodes a YAML document on top of Default and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields that have a closed set of values.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Kernel.RootDir) == "" {
		return fmt.Errorf("config: %w: kernel.root_dir is required", ErrInvalidConfig)
	}
	switch strings.ToLower(strings.TrimSpace(c.ExpressionLanguage)) {
	case "", "js", "php":
	default:
		return fmt.Errorf("config: %w: expression_language %q must be js or php", ErrInvalidConfig, c.ExpressionLanguage)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: %w: log.format %q must be text or json", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// EngineKernel returns the engine kernel described by the file.
func (c Config) EngineKernel() engine.Kernel {
	var bundles map[string]string
	if len(c.Kernel.Bundles) > 0 {
		bundles = make(map[string]string, len(c.Kernel.Bundles))
		for name, dir := range c.Kernel.Bundles {
			bundles[name] = dir
		}
	}
	return engine.Kernel{
		RootDir:     c.Kernel.RootDir,
		CacheDir:    c.Kernel.CacheDir,
		Environment: c.Kernel.Environment,
		Debug:       c.Kernel.Debug,
		Bundles:     bundles,
	}
}

// Services builds the helper services the file configures.
func (c Config) Services() helpers.Services {
	services := helpers.Services{
		Assets: helpers.NewAssetPackage(helpers.AssetsConfig{
			BasePath:      c.Assets.BasePath,
			Version:       c.Assets.Version,
			VersionFormat: c.Assets.VersionFormat,
		}),
		Request: &helpers.RequestContext{
			Scheme:  c.Scheme,
			Host:    c.Host,
			BaseURL: c.BaseURL,
		},
	}
	if len(c.Routes) > 0 {
		services.Router = helpers.NewRoutes(c.origin(), c.Routes)
	}
	return services
}

// EngineOptions returns the engine options the file configures.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithExpressionLanguage(c.ExpressionLanguage),
		engine.WithServices(c.Services()),
	}
}

func (c Config) origin() string {
	if c.Host == "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.Host + strings.TrimRight(c.BaseURL, "/")
}

func resolvePath(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
