// Package compiler turns Pug source into template source the render backend
// can execute.
package compiler

// Compiler converts template source for name into backend template source.
type Compiler interface {
	Compile(name string, source []byte) (string, error)
}

// Func adapts a function to Compiler.
type Func func(name string, source []byte) (string, error)

// Compile implements Compiler.
func (f Func) Compile(name string, source []byte) (string, error) {
	return f(name, source)
}

// Passthrough returns source unchanged. Use it for templates already written
// in backend syntax.
var Passthrough Compiler = Func(func(_ string, source []byte) (string, error) {
	return string(source), nil
})
