package engine

import (
	"strings"
)

// Kernel describes the application tree the engine serves.
type Kernel struct {
	// RootDir is the application directory holding Resources/views and
	// Resources/assets. Its parent holds src/ and web/.
	RootDir string
	// CacheDir is the application cache directory; templates are cached in
	// its pug/ sub-directory. Empty disables the on-disk cache.
	CacheDir string
	// Environment name ("prod", "dev", "test"). Environments starting with
	// "dev" never cache templates.
	Environment string
	Debug       bool
	// Bundles maps bundle names to their directories for Bundle:dir:file
	// template names.
	Bundles map[string]string
}

func (k Kernel) environment() string {
	if env := strings.TrimSpace(k.Environment); env != "" {
		return env
	}
	return "prod"
}

// TokenStorage exposes the authenticated user's token.
type TokenStorage interface {
	Token() string
}

// App is shared with every template as `app`.
type App struct {
	Debug       bool
	Environment string

	tokens TokenStorage
}

// User returns the current security token, or "" when no token storage is
// configured.
func (a *App) User() string {
	if a == nil || a.tokens == nil {
		return ""
	}
	return a.tokens.Token()
}
