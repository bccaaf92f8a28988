// Package helpers holds the framework helpers exposed to templates through
// the `view` variable, plus the registry the engine uses to look them up.
//
// Built-in helpers are Methods values: maps of lowerCamel callables such as
// `getUrl` or `isGranted`, which is the shape the rewrite package targets.
// Custom helpers can be any value; Registry.Register derives their template
// name from the Go type name.
package helpers
