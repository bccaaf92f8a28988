package rewrite

// Span is a classified run of template source.
type Span struct {
	Text    string
	Literal bool
}

// Split classifies source into alternating code and string-literal spans.
// Concatenating the Text of every span yields source again. An opening quote
// without a matching close is treated as code.
func Split(source string) []Span {
	var spans []Span
	codeStart := 0
	for i := 0; i < len(source); {
		c := source[i]
		if c != '"' && c != '\'' {
			i++
			continue
		}
		end, ok := literalEnd(source, i)
		if !ok {
			i++
			continue
		}
		if codeStart < i {
			spans = append(spans, Span{Text: source[codeStart:i]})
		}
		spans = append(spans, Span{Text: source[i:end], Literal: true})
		i = end
		codeStart = end
	}
	if codeStart < len(source) {
		spans = append(spans, Span{Text: source[codeStart:]})
	}
	return spans
}

// literalEnd returns the index just past the quote closing the literal that
// opens at start. A backslash escapes the following byte, whatever it is.
func literalEnd(source string, start int) (int, bool) {
	quote := source[start]
	for i := start + 1; i < len(source); i++ {
		switch source[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return 0, false
}
