package rewrite

import (
	"fmt"
	"strings"
)

// Mode selects the call syntax emitted for namespaced helper targets.
type Mode int

const (
	// ModePHP renders targets as $view['namespace']->method.
	ModePHP Mode = iota
	// ModeJS renders targets as view.namespace.method.
	ModeJS
)

// ParseMode maps an expressionLanguage option value to a Mode. Only "js"
// selects ModeJS; every other value falls back to ModePHP.
func ParseMode(value string) Mode {
	if strings.EqualFold(strings.TrimSpace(value), "js") {
		return ModeJS
	}
	return ModePHP
}

func (m Mode) String() string {
	switch m {
	case ModeJS:
		return "js"
	default:
		return "php"
	}
}

// Target is the callee a helper name is rewritten to. Either Func is set
// (bare function) or Namespace and Method are.
type Target struct {
	Func      string
	Namespace string
	Method    string
}

// Render returns the callee expression for the given mode, without the
// opening parenthesis.
func (t Target) Render(mode Mode) string {
	if t.Func != "" {
		return t.Func
	}
	if mode == ModeJS {
		return fmt.Sprintf("view.%s.%s", t.Namespace, t.Method)
	}
	return fmt.Sprintf("$view['%s']->%s", t.Namespace, t.Method)
}

// Entry binds a template-facing helper name to its target.
type Entry struct {
	Name   string
	Target Target
}

// Table is the ordered substitution table.
type Table []Entry

// Func builds an entry targeting a bare function.
func Func(name, fn string) Entry {
	return Entry{Name: name, Target: Target{Func: fn}}
}

// Method builds an entry targeting namespace.method on the view.
func Method(name, namespace, method string) Entry {
	return Entry{Name: name, Target: Target{Namespace: namespace, Method: method}}
}

// DefaultTable returns the helper names understood out of the box.
func DefaultTable() Table {
	return Table{
		Func("random", "mt_rand"),
		Method("asset", "assets", "getUrl"),
		Method("asset_version", "assets", "getVersion"),
		Method("css_url", "css", "getUrl"),
		Method("csrf_token", "form", "csrfToken"),
		Method("logout_url", "logout", "url"),
		Method("logout_path", "logout", "path"),
		Method("url", "router", "url"),
		Method("path", "router", "path"),
		Method("absolute_url", "http", "generateAbsoluteUrl"),
		Method("relative_path", "http", "generateRelativePath"),
		Method("is_granted", "security", "isGranted"),
	}
}

// Lookup returns the target registered for name. When a name appears more
// than once the first entry wins.
func (t Table) Lookup(name string) (Target, bool) {
	for _, entry := range t {
		if entry.Name == name {
			return entry.Target, true
		}
	}
	return Target{}, false
}
