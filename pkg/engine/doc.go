// Package engine renders Pug views for a Go application.
//
// An Engine is built from a Kernel describing the application tree. It finds
// the views and assets directories, registers framework helpers under the
// `view` template variable and runs every template through the same
// pipeline:
//
//	source -> rewrite (helper calls) -> compiler (Pug) -> backend (pongo2)
//
// Compiled templates are kept in memory and, outside dev environments, in a
// cache directory so they can be warmed ahead of time with CacheDirectory.
//
// The default backend evaluates js-style expressions, so expressionLanguage
// defaults to "js". The php-style output is kept for custom compilers that
// understand it.
package engine
