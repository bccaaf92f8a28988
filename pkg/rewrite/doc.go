// Package rewrite renames bare helper calls in Pug template source so they
// resolve to helper methods exposed on the `view` template variable.
//
// The pass is lexical: the source is split into string-literal and code spans
// and only code spans are touched. A call such as `p=asset("logo.png")`
// becomes `p=view.assets.getUrl("logo.png")` in ModeJS and
// `p=$view['assets']->getUrl("logo.png")` in ModePHP. A helper name is only
// rewritten when it follows one of the expression-start tokens
// `=>`, `=`, `.`, `+`, `,`, `:`, `?` or `(`.
package rewrite
