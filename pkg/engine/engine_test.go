package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/goliatone/go-pugview/pkg/compiler"
	"github.com/goliatone/go-pugview/pkg/helpers"
	"github.com/goliatone/go-pugview/pkg/rewrite"
	"github.com/goliatone/go-pugview/pkg/testsupport"
)

type CustomHelper struct{}

func (CustomHelper) Foo() string { return "bar" }

type stubTokens struct{}

func (stubTokens) Token() string { return "token" }

type project struct {
	root   string
	app    string
	src    string
	kernel Kernel
}

func newProject(t *testing.T, env string) project {
	t.Helper()

	root := t.TempDir()
	testsupport.WriteTree(t, root, map[string]string{
		"app/Resources/views/hello.pug":         "<p>{{ text }}</p>",
		"app/Resources/views/page.pug":          `<h1>{{ title }}</h1>{% with u=asset("img/patterns/5.png") %}<div style="background-image: {{ u }}"></div>{% endwith %}`,
		"app/Resources/views/css.pug":           `{% with c=css_url("img/patterns/5.png") %}<div style="background-image:{{ c|safe }}"></div>{% endwith %}`,
		"app/Resources/views/custom-helper.pug": `{% if view.custom %}<u>{{ view.custom.Foo() }}</u>{% else %}<s>Noop</s>{% endif %}`,
		"app/Resources/views/token.pug":         "<p>{{ app.User() }}</p>",
		"app/Resources/views/random.pug":        "{% with n=random(3, 3) %}{{ n }}{% endwith %}",
		"app/Resources/views/env.pug":           "{{ app.Environment }}",
		"src/TestBundle/Resources/views/bundle.pug":         "<p>{{ text }}</p>",
		"src/TestBundle/Resources/views/directory/file.pug": "<section>World</section>",
	})
	testsupport.MkdirAll(t, root, "var/cache")

	p := project{
		root: root,
		app:  filepath.Join(root, "app"),
		src:  filepath.Join(root, "src"),
	}
	p.kernel = Kernel{
		RootDir:     p.app,
		CacheDir:    filepath.Join(root, "var", "cache"),
		Environment: env,
		Bundles: map[string]string{
			"TestBundle": filepath.Join(p.src, "TestBundle"),
		},
	}
	return p
}

// newEngine builds an engine whose views are already backend templates.
func newEngine(t *testing.T, p project, opts ...Option) *Engine {
	t.Helper()
	return newPugEngine(t, p, append([]Option{WithCompiler(compiler.Passthrough)}, opts...)...)
}

// newPugEngine builds an engine with the default Pug compiler.
func newPugEngine(t *testing.T, p project, opts ...Option) *Engine {
	t.Helper()

	base := []Option{
		WithTracerProvider(noop.NewTracerProvider()),
		WithServices(helpers.Services{
			Assets: helpers.NewAssetPackage(helpers.AssetsConfig{BasePath: "/assets"}),
			Router: helpers.NewRoutes("https://example.com", map[string]string{"home": "/home"}),
		}),
	}
	e, err := New(p.kernel, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestNew_ResolvesLayoutAndOptions(t *testing.T) {
	p := newProject(t, "prod")
	e := newEngine(t, p)

	baseDir, err := e.GetOption(OptionBaseDir)
	if err != nil {
		t.Fatalf("get baseDir: %v", err)
	}
	if baseDir != filepath.Join(p.src, "TestBundle", "Resources", "views") {
		t.Fatalf("unexpected base dir %v", baseDir)
	}

	assets, _ := e.GetOption(OptionAssetDirectory)
	wantAssets := []string{
		filepath.Join(p.app, "Resources", "assets"),
		filepath.Join(p.src, "TestBundle", "Resources", "assets"),
	}
	if diff := cmp.Diff(wantAssets, assets); diff != "" {
		t.Fatalf("asset directories mismatch (-want +got):\n%s", diff)
	}

	cache, _ := e.GetOption(OptionCache)
	wantCache := filepath.Join(p.root, "var", "cache", "pug")
	if cache != wantCache {
		t.Fatalf("unexpected cache option %v", cache)
	}
	if info, err := os.Stat(wantCache); err != nil || !info.IsDir() {
		t.Fatalf("expected cache dir to be created: %v", err)
	}

	output, _ := e.GetOption(OptionOutputDirectory)
	if output != filepath.Join(p.root, "web") {
		t.Fatalf("unexpected output directory %v", output)
	}
	if lang, _ := e.GetOption(OptionExpressionLanguage); lang != "js" {
		t.Fatalf("expected js expression language, got %v", lang)
	}
}

func TestNew_FallbackAppViews(t *testing.T) {
	p := newProject(t, "prod")
	views := filepath.Join(p.src, "TestBundle", "Resources", "views")
	if err := os.Rename(views, views+".save"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	e := newEngine(t, p)
	baseDir, _ := e.GetOption(OptionBaseDir)
	if baseDir != filepath.Join(p.app, "Resources", "views") {
		t.Fatalf("unexpected base dir %v", baseDir)
	}
}

func TestNew_DevDisablesCache(t *testing.T) {
	p := newProject(t, "dev_local")
	e := newEngine(t, p)

	if cache, _ := e.GetOption(OptionCache); cache != "" {
		t.Fatalf("expected cache disabled in dev, got %v", cache)
	}
	if _, err := e.CacheDirectory(testsupport.Context(), p.app); !errors.Is(err, ErrCacheDisabled) {
		t.Fatalf("expected ErrCacheDisabled, got %v", err)
	}
}

func TestNew_RequiresRootDir(t *testing.T) {
	if _, err := New(Kernel{}); !errors.Is(err, ErrRootDirRequired) {
		t.Fatalf("expected ErrRootDirRequired, got %v", err)
	}
}

func TestOptions(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	_, err := e.GetOption("foo")
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	if err.Error() != "foo is not a valid option name." {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if err := e.SetOption("foo", "bar"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("expected SetOption to reject unknown names, got %v", err)
	}

	if err := e.SetCustomOptions(map[string]any{"foo": "bar"}); err != nil {
		t.Fatalf("set custom options: %v", err)
	}
	if got, _ := e.GetOption("foo"); got != "bar" {
		t.Fatalf("expected custom option, got %v", got)
	}

	if err := e.SetOptions(map[string]any{OptionPrettyPrint: true, OptionCache: false}); err != nil {
		t.Fatalf("set options: %v", err)
	}
	if got, _ := e.GetOption(OptionPrettyPrint); got != true {
		t.Fatalf("expected prettyprint true, got %v", got)
	}
	if got, _ := e.GetOption(OptionCache); got != "" {
		t.Fatalf("expected cache off, got %v", got)
	}

	if err := e.SetOption(OptionPrettyPrint, "yes"); err == nil {
		t.Fatalf("expected type error for prettyprint")
	}
	if err := e.SetOption(OptionExtension, "html"); err != nil {
		t.Fatalf("set extension: %v", err)
	}
	if got, _ := e.GetOption(OptionExtension); !cmp.Equal(got, []string{".html"}) {
		t.Fatalf("unexpected extensions %v", got)
	}
}

func TestRender(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return e.Render(testsupport.Context(), "hello.pug", map[string]any{"text": "Hello"}, w)
	})
	if result != "<p>Hello</p>" || written != result {
		t.Fatalf("unexpected render result %q / %q", result, written)
	}
}

func TestRender_Golden(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	got, err := e.Render(testsupport.Context(), "page.pug", map[string]any{"title": "Patterns"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	golden := filepath.Join("testdata", "page.golden")
	if testsupport.WriteMaybeGolden(t, golden, []byte(got)) {
		return
	}
	want := strings.TrimRight(testsupport.MustReadGoldenString(t, golden), "\n")
	if diff := testsupport.CompareGolden(want, got); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_CSSHelper(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	got, err := e.Render(testsupport.Context(), "css.pug", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := `<div style="background-image:url('/assets/img/patterns/5.png')"></div>`
	if got != want {
		t.Fatalf("unexpected output\nwant: %q\n got: %q", want, got)
	}
}

func TestRender_ForbiddenKeys(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	for _, key := range []string{"view", "this"} {
		_, err := e.Render(testsupport.Context(), "hello.pug", map[string]any{key: 42})
		if !errors.Is(err, ErrForbiddenKey) {
			t.Fatalf("expected ErrForbiddenKey for %q, got %v", key, err)
		}
		want := fmt.Sprintf(`The "%s" key is forbidden.`, key)
		if err.Error() != want {
			t.Fatalf("unexpected message %q", err.Error())
		}
	}
}

func TestRender_BundleViews(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))
	ctx := testsupport.Context()

	got, err := e.Render(ctx, "TestBundle::bundle.pug", map[string]any{"text": "Hello"})
	if err != nil || got != "<p>Hello</p>" {
		t.Fatalf("unexpected bundle render %q, %v", got, err)
	}
	got, err = e.Render(ctx, "TestBundle:directory:file.pug", nil)
	if err != nil || got != "<section>World</section>" {
		t.Fatalf("unexpected nested bundle render %q, %v", got, err)
	}
	if _, err := e.Render(ctx, "TestBundle:file.pug", nil); !errors.Is(err, ErrInvalidTemplateName) {
		t.Fatalf("expected ErrInvalidTemplateName, got %v", err)
	}
	if _, err := e.Render(ctx, "missing.pug", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestFileFromName(t *testing.T) {
	p := newProject(t, "prod")
	e := newEngine(t, p)

	cases := map[string]string{
		"p.pug":                         filepath.Join(p.app, "Resources", "views", "p.pug"),
		"TestBundle::bundle.pug":        filepath.Join(p.src, "TestBundle", "Resources", "views", "bundle.pug"),
		"TestBundle:directory:file.pug": filepath.Join(p.src, "TestBundle", "Resources", "views", "directory", "file.pug"),
		"Unknown::x.pug":                filepath.Join(p.app, "Resources", "views", "x.pug"),
	}
	for name, want := range cases {
		got, err := e.FileFromName(name)
		if err != nil {
			t.Fatalf("FileFromName(%q): %v", name, err)
		}
		if got != want {
			t.Fatalf("FileFromName(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestCustomHelper(t *testing.T) {
	helper := &CustomHelper{}
	e := newEngine(t, newProject(t, "prod"), WithHelpers(helper))
	ctx := testsupport.Context()

	if !e.HasHelper("custom") {
		t.Fatalf("expected custom helper")
	}
	if got, _ := e.Helper("custom"); got != helper {
		t.Fatalf("expected same helper back, got %v", got)
	}
	if got, err := e.Render(ctx, "custom-helper.pug", nil); err != nil || got != "<u>bar</u>" {
		t.Fatalf("unexpected render %q, %v", got, err)
	}

	e.UnsetHelper("custom")
	if e.HasHelper("custom") {
		t.Fatalf("expected custom helper removed")
	}
	if got, err := e.Render(ctx, "custom-helper.pug", nil); err != nil || got != "<s>Noop</s>" {
		t.Fatalf("unexpected render after unset %q, %v", got, err)
	}

	e.SetHelper("custom", helper)
	if got, err := e.Render(ctx, "custom-helper.pug", nil); err != nil || got != "<u>bar</u>" {
		t.Fatalf("unexpected render after set %q, %v", got, err)
	}
}

func TestApp(t *testing.T) {
	e := newEngine(t, newProject(t, "test"), WithTokenStorage(stubTokens{}))
	ctx := testsupport.Context()

	if got, err := e.Render(ctx, "token.pug", nil); err != nil || got != "<p>token</p>" {
		t.Fatalf("unexpected token render %q, %v", got, err)
	}
	if got, err := e.Render(ctx, "env.pug", nil); err != nil || got != "test" {
		t.Fatalf("unexpected env render %q, %v", got, err)
	}
	if e.App().Environment != "test" {
		t.Fatalf("unexpected app environment %q", e.App().Environment)
	}
}

func TestRandomHelper(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))
	if got, err := e.Render(testsupport.Context(), "random.pug", nil); err != nil || got != "3" {
		t.Fatalf("unexpected random render %q, %v", got, err)
	}
}

func TestFilter(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))
	name := "engine_test_upper"

	if e.HasFilter(name) {
		t.Fatalf("filter should not exist yet")
	}
	if err := e.Filter(name, func(input any, _ any) (any, error) {
		return strings.ToUpper(fmt.Sprint(input)), nil
	}); err != nil {
		t.Fatalf("filter: %v", err)
	}
	if !e.HasFilter(name) {
		t.Fatalf("expected filter registered")
	}
	fn, ok := e.GetFilter(name)
	if !ok {
		t.Fatalf("expected filter lookup")
	}
	if out, _ := fn("abc", nil); out != "ABC" {
		t.Fatalf("unexpected filter output %v", out)
	}

	got, err := e.RenderString(testsupport.Context(), `{{ "foo"|`+name+` }}`, nil)
	if err != nil || got != "FOO" {
		t.Fatalf("unexpected filtered render %q, %v", got, err)
	}
}

func TestExistsAndSupports(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	if !e.Exists("hello.pug") {
		t.Fatalf("expected hello.pug to exist")
	}
	if e.Exists("login.pug") {
		t.Fatalf("expected login.pug to be missing")
	}
	if e.Exists("bad:name") {
		t.Fatalf("invalid names never exist")
	}

	if !e.Supports("foo-bar.pug") {
		t.Fatalf("expected .pug support")
	}
	if e.Supports("foo-bar.twig") || e.Supports("foo-bar") {
		t.Fatalf("unexpected support for non-pug names")
	}
}

func TestPreRenderFollowsExpressionLanguage(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	if got := e.PreRender(`p=asset("foo")`); got != `p=view.assets.getUrl("foo")` {
		t.Fatalf("unexpected js rewrite %q", got)
	}
	if err := e.SetOption(OptionExpressionLanguage, "php"); err != nil {
		t.Fatalf("set option: %v", err)
	}
	if e.Mode() != rewrite.ModePHP {
		t.Fatalf("expected php mode")
	}
	if got := e.PreRender(`p=asset("foo")`); got != `p=$view['assets']->getUrl("foo")` {
		t.Fatalf("unexpected php rewrite %q", got)
	}
}

func TestRender_CacheRefreshesOnChange(t *testing.T) {
	p := newProject(t, "prod")
	e := newEngine(t, p)
	ctx := testsupport.Context()

	if got, err := e.Render(ctx, "hello.pug", map[string]any{"text": "one"}); err != nil || got != "<p>one</p>" {
		t.Fatalf("unexpected first render %q, %v", got, err)
	}

	cached, err := filepath.Glob(filepath.Join(p.root, "var", "cache", "pug", "*.tpl"))
	if err != nil || len(cached) != 1 {
		t.Fatalf("expected one cache file, got %v (%v)", cached, err)
	}

	testsupport.Touch(t, filepath.Join(p.app, "Resources", "views", "hello.pug"), "<em>{{ text }}</em>")
	if got, err := e.Render(ctx, "hello.pug", map[string]any{"text": "two"}); err != nil || got != "<em>two</em>" {
		t.Fatalf("expected refreshed template, got %q, %v", got, err)
	}
}

func TestRender_UsesCompiledCacheFromDisk(t *testing.T) {
	p := newProject(t, "prod")
	first := newEngine(t, p)
	ctx := testsupport.Context()

	if _, err := first.Render(ctx, "hello.pug", map[string]any{"text": "x"}); err != nil {
		t.Fatalf("render: %v", err)
	}

	calls := 0
	counting := compiler.Func(func(name string, source []byte) (string, error) {
		calls++
		return string(source), nil
	})
	second := newEngine(t, p, WithCompiler(counting))
	if got, err := second.Render(ctx, "hello.pug", map[string]any{"text": "y"}); err != nil || got != "<p>y</p>" {
		t.Fatalf("unexpected render %q, %v", got, err)
	}
	if calls != 0 {
		t.Fatalf("expected disk cache hit, compiler called %d times", calls)
	}
}

func TestCacheDirectory(t *testing.T) {
	p := newProject(t, "prod")
	views := filepath.Join(p.root, "extra", "views")
	testsupport.WriteTree(t, views, map[string]string{
		"ok.pug":        "<p>{{ a }}</p>",
		"nested/ok.pug": "<p>{{ b }}</p>",
		"broken.pug":    "{% if %}",
		"notes.txt":     "ignored",
	})
	e := newEngine(t, p)

	stats, err := e.CacheDirectory(testsupport.Context(), views)
	if err != nil {
		t.Fatalf("cache directory: %v", err)
	}
	if stats.Success != 2 || stats.Errors != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Failures) != 1 || filepath.Base(stats.Failures[0].Path) != "broken.pug" {
		t.Fatalf("unexpected failures %+v", stats.Failures)
	}

	cached, _ := filepath.Glob(filepath.Join(p.root, "var", "cache", "pug", "*.tpl"))
	if len(cached) != 2 {
		t.Fatalf("expected two cache files, got %v", cached)
	}
}

func TestRenderString(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	got, err := e.RenderString(testsupport.Context(), "<b>{{ name }}</b>", map[string]any{"name": "Ada"})
	if err != nil || got != "<b>Ada</b>" {
		t.Fatalf("unexpected render %q, %v", got, err)
	}
	if _, err := e.RenderString(testsupport.Context(), "x", map[string]any{"this": 1}); !errors.Is(err, ErrForbiddenKey) {
		t.Fatalf("expected ErrForbiddenKey, got %v", err)
	}
}

func TestLoggingContext(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := LoggingContext(testsupport.Context(), logger)

	if _, err := e.Render(ctx, "missing.pug", nil); err == nil {
		t.Fatalf("expected render error")
	}
	if !strings.Contains(buf.String(), "render failed") {
		t.Fatalf("expected failure to be logged, got %q", buf.String())
	}
}

func TestRender_PugFixtures(t *testing.T) {
	p := newProject(t, "prod")
	testsupport.WriteTree(t, p.root, map[string]string{
		"app/Resources/views/pug/title.pug":  "p= title",
		"app/Resources/views/pug/asset.pug":  `img(src=asset("x.png"))`,
		"app/Resources/views/pug/link.pug":   "a(href=title) go",
		"app/Resources/views/pug/route.pug":  `a(href=path("home")) home`,
		"app/Resources/views/pug/list.pug":   "ul\n  each item in items\n    li= item\n  else\n    li none",
		"app/Resources/views/pug/branch.pug": "if admin\n  p admin\nelse if title\n  p= title\nelse\n  p guest",
		"app/Resources/views/pug/case.pug":   "case title\n  when \"/x\"\n    p root\n  default\n    p other",
	})
	e := newPugEngine(t, p)

	cases := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{name: "pug/title.pug", params: map[string]any{"title": "T"}, want: "<p>T</p>"},
		{name: "pug/asset.pug", want: `<img src="/assets/x.png"/>`},
		{name: "pug/link.pug", params: map[string]any{"title": "/x"}, want: `<a href="/x">go</a>`},
		{name: "pug/route.pug", want: `<a href="/home">home</a>`},
		{name: "pug/list.pug", params: map[string]any{"items": []string{"a", "b"}}, want: "<ul><li>a</li><li>b</li></ul>"},
		{name: "pug/list.pug", params: map[string]any{"items": []string{}}, want: "<ul><li>none</li></ul>"},
		{name: "pug/branch.pug", params: map[string]any{"admin": false, "title": "T"}, want: "<p>T</p>"},
		{name: "pug/case.pug", params: map[string]any{"title": "/x"}, want: "<p>root</p>"},
		{name: "pug/case.pug", params: map[string]any{"title": "y"}, want: "<p>other</p>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Render(testsupport.Context(), tc.name, tc.params)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected output\nwant: %q\n got: %q", tc.want, got)
			}
		})
	}
}

func TestRender_PugDocument(t *testing.T) {
	p := newProject(t, "prod")
	testsupport.WriteTree(t, p.root, map[string]string{
		"app/Resources/views/doc.pug": strings.Join([]string{
			"doctype html",
			"html",
			"  head",
			"    title= title",
			"  body",
			"    h1= title",
			`    img(src=asset("img/logo.png"), alt="logo")`,
		}, "\n"),
	})
	e := newPugEngine(t, p)

	got, err := e.Render(testsupport.Context(), "doc.pug", map[string]any{"title": "<Home>"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"<title>&lt;Home&gt;</title>",
		"<h1>&lt;Home&gt;</h1>",
		`<img src="/assets/img/logo.png" alt="logo"/>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
}

func TestRenderString_Pug(t *testing.T) {
	e := newPugEngine(t, newProject(t, "prod"))

	got, err := e.RenderString(testsupport.Context(), `a(href=asset("a.css")) css`, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != `<a href="/assets/a.css">css</a>` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLoggingContext_RenderString(t *testing.T) {
	e := newEngine(t, newProject(t, "prod"))

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := LoggingContext(testsupport.Context(), logger)

	if _, err := e.RenderString(ctx, "{% if %}", nil); err == nil {
		t.Fatalf("expected render error")
	}
	out := buf.String()
	if !strings.Contains(out, "render failed") || !strings.Contains(out, "template=inline") {
		t.Fatalf("expected inline failure to be logged, got %q", out)
	}
}
