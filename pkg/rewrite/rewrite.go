package rewrite

import "strings"

// Rewriter applies a substitution table to template source. It holds no
// mutable state and is safe for concurrent use.
type Rewriter struct {
	mode    Mode
	callees map[string]string
}

// New prepares a Rewriter for table rendered in mode.
func New(table Table, mode Mode) *Rewriter {
	callees := make(map[string]string, len(table))
	for _, entry := range table {
		if entry.Name == "" {
			continue
		}
		if _, exists := callees[entry.Name]; exists {
			continue
		}
		callees[entry.Name] = entry.Target.Render(mode)
	}
	return &Rewriter{mode: mode, callees: callees}
}

// Rewrite is a one-shot helper equivalent to New(table, mode).Rewrite(source).
func Rewrite(source string, table Table, mode Mode) string {
	return New(table, mode).Rewrite(source)
}

// Mode reports the call syntax the rewriter emits.
func (r *Rewriter) Mode() Mode {
	return r.mode
}

// Rewrite returns source with every gated helper call in code spans renamed
// to its target. String literals are copied verbatim.
func (r *Rewriter) Rewrite(source string) string {
	if source == "" || len(r.callees) == 0 {
		return source
	}

	var out strings.Builder
	out.Grow(len(source))
	for _, span := range Split(source) {
		if span.Literal {
			out.WriteString(span.Text)
			continue
		}
		r.rewriteCode(span.Text, &out)
	}
	return out.String()
}

func (r *Rewriter) rewriteCode(code string, out *strings.Builder) {
	written := 0
	for i := 0; i < len(code); {
		if !isIdentChar(code[i]) {
			i++
			continue
		}
		if i > 0 && isIdentChar(code[i-1]) {
			i++
			continue
		}

		end := i
		for end < len(code) && isIdentChar(code[end]) {
			end++
		}
		callee, ok := r.callees[code[i:end]]
		if !ok {
			i = end
			continue
		}

		paren := skipSpace(code, end)
		if paren >= len(code) || code[paren] != '(' {
			i = end
			continue
		}

		start := i
		for start > 0 && isSpace(code[start-1]) {
			start--
		}
		if !opensExpression(code, start) {
			i = end
			continue
		}

		out.WriteString(code[written:start])
		out.WriteString(callee)
		out.WriteByte('(')
		written = paren + 1
		i = written
	}
	out.WriteString(code[written:])
}

// opensExpression reports whether the bytes right before at form one of the
// expression-start tokens `=>`, `=`, `.`, `+`, `,`, `:`, `?` or `(`. A `.` that
// follows a receiver (`foo.`, `bar().`, `list[0].`) is member access and does
// not count.
func opensExpression(code string, at int) bool {
	if at == 0 {
		return false
	}
	switch code[at-1] {
	case '=', '+', ',', ':', '?', '(':
		return true
	case '>':
		return at >= 2 && code[at-2] == '='
	case '.':
		return at < 2 || !isReceiverEnd(code[at-2])
	}
	return false
}

func isReceiverEnd(c byte) bool {
	return isIdentChar(c) || c == ')' || c == ']'
}

func isIdentChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_', c == '$', c >= 0x80:
		return true
	}
	return false
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func skipSpace(code string, from int) int {
	for from < len(code) && isSpace(code[from]) {
		from++
	}
	return from
}
