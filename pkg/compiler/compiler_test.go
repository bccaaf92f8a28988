package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-pugview/pkg/render/template/pongo"
)

func TestPassthrough(t *testing.T) {
	out, err := Passthrough.Compile("page.pug", []byte("<p>{{ name }}</p>"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if out != "<p>{{ name }}</p>" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFunc(t *testing.T) {
	boom := errors.New("boom")
	c := Func(func(name string, _ []byte) (string, error) {
		if name == "bad" {
			return "", boom
		}
		return strings.ToUpper(name), nil
	})

	if out, err := c.Compile("ok", nil); err != nil || out != "OK" {
		t.Fatalf("unexpected result %q, %v", out, err)
	}
	if _, err := c.Compile("bad", nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestJade_CompilesTags(t *testing.T) {
	out, err := Jade().Compile("hello", []byte("p Hello"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(out, "<p>Hello</p>") {
		t.Fatalf("expected paragraph in output, got %q", out)
	}
}

func renderPug(t *testing.T, source string, data map[string]any) string {
	t.Helper()

	code, err := Jade().Compile("test.pug", []byte(source))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	backend, err := pongo.New()
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	tmpl, err := backend.Compile("test.pug", code)
	if err != nil {
		t.Fatalf("pongo rejected %q: %v", code, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(data, &buf); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return buf.String()
}

func TestJade_EmitsPongoSyntax(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
	}{
		{name: "buffered", source: "p= title", want: "<p>{{ title }}</p>"},
		{name: "attribute", source: "a(href=url) go", want: `<a href="{{ url }}">go</a>`},
		{name: "if", source: "if ok\n  p yes", want: "{% if ok %}<p>yes</p>{% endif %}"},
		{name: "unless", source: "unless ok\n  p no", want: "{% if not (ok) %}<p>no</p>{% endif %}"},
		{name: "each", source: "each item in items\n  li= item", want: "{% for item in items %}<li>{{ item }}</li>{% endfor %}"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Jade().Compile(tc.name, []byte(tc.source))
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if !strings.Contains(out, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, out)
			}
			if strings.Contains(out, blockOpen) || strings.Contains(out, "print") {
				t.Fatalf("unexpected leftover syntax in %q", out)
			}
		})
	}
}

func TestJade_RendersThroughPongo(t *testing.T) {
	data := map[string]any{
		"title": "<T>",
		"url":   "/x",
		"items": []string{"a", "b"},
		"none":  []string{},
		"kind":  "b",
		"admin": false,
		"html":  "<em>hi</em>",
		"view": map[string]any{
			"assets": map[string]any{
				"getUrl": func(path string) string { return "/assets/" + path },
			},
		},
	}

	cases := []struct {
		name   string
		source string
		want   string
	}{
		{name: "escaped text", source: "p= title", want: "<p>&lt;T&gt;</p>"},
		{name: "unescaped text", source: "p!= html", want: "<p><em>hi</em></p>"},
		{name: "attribute variable", source: "a(href=url) go", want: `<a href="/x">go</a>`},
		{name: "attribute call", source: `img(src=view.assets.getUrl("x.png"))`, want: `<img src="/assets/x.png"/>`},
		{name: "literal attribute", source: `img(alt="logo")`, want: `<img alt="logo"/>`},
		{name: "class merge", source: "p.lead(class=kind) hi", want: `<p class="lead b">hi</p>`},
		{name: "if else", source: "if admin\n  p admin\nelse\n  p guest", want: "<p>guest</p>"},
		{name: "unless", source: "unless admin\n  p guest", want: "<p>guest</p>"},
		{name: "each", source: "ul\n  each item in items\n    li= item", want: "<ul><li>a</li><li>b</li></ul>"},
		{name: "each else", source: "each item in none\n  li= item\nelse\n  p empty", want: "<p>empty</p>"},
		{name: "case", source: "case kind\n  when \"a\"\n    p A\n  when \"b\"\n    p B\n  default\n    p other", want: "<p>B</p>"},
		{name: "case default", source: "case title\n  when \"a\"\n    p A\n  default\n    p other", want: "<p>other</p>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := renderPug(t, tc.source, data)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("expected %q in %q", tc.want, got)
			}
		})
	}
}

func TestJade_CaseRendersSingleBranch(t *testing.T) {
	source := "case n\n  when 1\n    p one\n  when 2\n    p two"
	got := renderPug(t, source, map[string]any{"n": 2})
	if got != "<p>two</p>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTranslateBlocks_Errors(t *testing.T) {
	cases := map[string]string{
		"unterminated": "{%@if x",
		"unbalanced":   "{%@end@%}",
		"unclosed":     "{%@if x@%}<p></p>",
		"stray when":   "{%@when 1@%}",
		"while":        "{%@while x@%}{%@end@%}",
		"unknown":      "{%@loop x@%}",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := translateBlocks(src); err == nil {
				t.Fatalf("expected error for %q", src)
			}
		})
	}
}

func TestTranslateBlocks_LeavesHandWrittenTags(t *testing.T) {
	src := "{% if a %}{{ a }}{% endif %}"
	out, err := translateBlocks(src)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != src {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestJade_MalformedEachFailsInPongo(t *testing.T) {
	code, err := Jade().Compile("bad.pug", []byte("each in\n  p x"))
	if err != nil {
		return
	}
	backend, err := pongo.New()
	if err != nil {
		t.Fatalf("backend: %v", err)
	}
	if _, err := backend.Compile("bad.pug", code); err == nil {
		t.Fatalf("expected malformed each to be rejected, got %q", code)
	}
}
