// Package template defines the render backend contract the engine compiles
// Pug output against. Backends execute already-compiled template source;
// they never see Pug syntax.
package template
