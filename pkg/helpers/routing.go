package helpers

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrRouteNotFound is returned when a route name is unknown.
	ErrRouteNotFound = errors.New("route not found")
	// ErrMissingRouteParam is returned when a route placeholder has no value.
	ErrMissingRouteParam = errors.New("missing route parameter")
)

// Router generates URLs for named routes.
type Router interface {
	Generate(name string, params map[string]any, absolute bool) (string, error)
}

// Routes is a Router backed by path patterns with {placeholder} segments.
// Parameters that do not match a placeholder are appended as a query string.
type Routes struct {
	baseURL  string
	patterns map[string]string
}

// NewRoutes builds a Routes table. baseURL ("https://example.com") prefixes
// absolute URLs.
func NewRoutes(baseURL string, patterns map[string]string) *Routes {
	copied := make(map[string]string, len(patterns))
	for name, pattern := range patterns {
		copied[strings.TrimSpace(name)] = pattern
	}
	return &Routes{
		baseURL:  strings.TrimRight(baseURL, "/"),
		patterns: copied,
	}
}

// Generate implements Router.
func (r *Routes) Generate(name string, params map[string]any, absolute bool) (string, error) {
	pattern, ok := r.patterns[name]
	if !ok {
		return "", fmt.Errorf("helpers: %w: %q", ErrRouteNotFound, name)
	}

	used := make(map[string]struct{})
	var b strings.Builder
	for rest := pattern; rest != ""; {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing < 0 {
			b.WriteString(rest)
			break
		}
		key := rest[open+1 : open+closing]
		value, ok := params[key]
		if !ok {
			return "", fmt.Errorf("helpers: %w %q for route %q", ErrMissingRouteParam, key, name)
		}
		used[key] = struct{}{}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(value)))
		rest = rest[open+closing+1:]
	}

	query := url.Values{}
	for key, value := range params {
		if _, ok := used[key]; ok {
			continue
		}
		query.Set(key, fmt.Sprint(value))
	}

	out := b.String()
	if len(query) > 0 {
		out += "?" + query.Encode()
	}
	if absolute {
		out = r.baseURL + out
	}
	return out, nil
}

// Routing exposes url (absolute) and path (relative) generation.
func Routing(r Router) Methods {
	generate := func(absolute bool) func(string, ...map[string]any) (string, error) {
		return func(name string, params ...map[string]any) (string, error) {
			merged := make(map[string]any)
			for _, set := range params {
				for key, value := range set {
					merged[key] = value
				}
			}
			return r.Generate(name, merged, absolute)
		}
	}
	return Methods{
		"url":  generate(true),
		"path": generate(false),
	}
}
