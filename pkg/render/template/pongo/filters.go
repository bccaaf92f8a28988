package pongo

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

var (
	filtersMu    sync.Mutex
	ownedFilters = make(map[string]struct{})

	defaultsOnce sync.Once
	defaultsErr  error

	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

func installFilter(name string, filter pongo2.FilterFunction) error {
	filtersMu.Lock()
	defer filtersMu.Unlock()

	if !pongo2.FilterExists(name) {
		if err := pongo2.RegisterFilter(name, filter); err != nil {
			return fmt.Errorf("pongo: register filter %q: %w", name, err)
		}
		ownedFilters[name] = struct{}{}
		return nil
	}
	if _, owned := ownedFilters[name]; !owned {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	if err := pongo2.ReplaceFilter(name, filter); err != nil {
		return fmt.Errorf("pongo: replace filter %q: %w", name, err)
	}
	return nil
}

type namedFilter struct {
	name   string
	filter pongo2.FilterFunction
}

var defaultFilters = []namedFilter{
	{name: "sanitize", filter: filterSanitize},
	{name: "strip_html", filter: filterStripHTML},
}

// registerDefaultFilters installs the package filters once per process and
// reports the same outcome to every caller.
func registerDefaultFilters() error {
	defaultsOnce.Do(func() {
		defaultsErr = installFilters(defaultFilters)
	})
	return defaultsErr
}

func installFilters(filters []namedFilter) error {
	var errs []error
	for _, f := range filters {
		if err := installFilter(f.name, f.filter); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// filterSanitize keeps user-generated-content safe markup and marks the
// result safe so autoescaping leaves it intact.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsSafeValue(ugcPolicy.Sanitize(in.String())), nil
}

func filterStripHTML(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(strictPolicy.Sanitize(in.String()))), nil
}
