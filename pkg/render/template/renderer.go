package template

import (
	"io"
)

// FilterFunc transforms a value inside a template expression. param is nil
// when the filter is used without an argument.
type FilterFunc func(input any, param any) (any, error)

// Template is a compiled template ready for execution.
type Template interface {
	Execute(data map[string]any, out io.Writer) error
}

// Backend compiles and executes template source produced by the Pug
// compiler.
type Backend interface {
	Compile(name, source string) (Template, error)
	RegisterFilter(name string, fn FilterFunc) error
	HasFilter(name string) bool
	GlobalContext(data map[string]any) error
}
