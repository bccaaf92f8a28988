package helpers

import (
	"fmt"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultVersionFormat appends the asset version as a query string.
const DefaultVersionFormat = "%s?%s"

// AssetsConfig configures an AssetPackage.
type AssetsConfig struct {
	// BasePath prefixes relative asset paths ("/assets", "https://cdn.example.com").
	BasePath string
	// Version is appended to every URL using VersionFormat when non-empty.
	Version       string
	VersionFormat string
	// Resolve, when set, maps a relative path to a URL before versioning.
	// An empty result falls back to BasePath.
	Resolve func(string) string
}

// WithThemeAssets routes asset resolution through a go-theme renderer
// configuration so themed templates pick up the theme's asset URLs.
func WithThemeAssets(cfg AssetsConfig, rc *theme.RendererConfig) AssetsConfig {
	if rc == nil || rc.AssetURL == nil {
		return cfg
	}
	cfg.Resolve = rc.AssetURL
	return cfg
}

// AssetPackage builds public URLs for static assets.
type AssetPackage struct {
	cfg AssetsConfig
}

// NewAssetPackage returns a package using cfg, defaulting VersionFormat.
func NewAssetPackage(cfg AssetsConfig) *AssetPackage {
	if strings.TrimSpace(cfg.VersionFormat) == "" {
		cfg.VersionFormat = DefaultVersionFormat
	}
	return &AssetPackage{cfg: cfg}
}

// URL returns the public URL for path. Absolute URLs and data URIs are
// returned untouched.
func (p *AssetPackage) URL(path string) string {
	if isAbsoluteURL(path) || strings.HasPrefix(path, "data:") {
		return path
	}

	url := ""
	if p.cfg.Resolve != nil {
		url = p.cfg.Resolve(path)
	}
	if url == "" {
		url = joinBase(p.cfg.BasePath, path)
	}
	if p.cfg.Version == "" {
		return url
	}
	return fmt.Sprintf(p.cfg.VersionFormat, url, p.cfg.Version)
}

// Version returns the version applied to path.
func (p *AssetPackage) Version(string) string {
	return p.cfg.Version
}

// Assets exposes getUrl and getVersion.
func Assets(p *AssetPackage) Methods {
	return Methods{
		"getUrl":     p.URL,
		"getVersion": p.Version,
	}
}

// CSS exposes getUrl, wrapping the asset URL in a CSS url() value for use in
// style attributes.
func CSS(p *AssetPackage) Methods {
	return Methods{
		"getUrl": func(path string) string {
			return "url('" + p.URL(path) + "')"
		},
	}
}

func joinBase(base, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + path
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "//") || strings.Contains(path, "://")
}
