package helpers

import "testing"

func TestRequestContext_AbsoluteURL(t *testing.T) {
	rc := &RequestContext{Scheme: "https", Host: "example.com", BaseURL: "/app", PathInfo: "/blog/post"}

	cases := map[string]string{
		"/img/a.png":         "https://example.com/img/a.png",
		"img/a.png":          "https://example.com/app/blog/img/a.png",
		"http://other.test/": "http://other.test/",
	}
	for input, want := range cases {
		if got := rc.AbsoluteURL(input); got != want {
			t.Fatalf("AbsoluteURL(%q) = %q, want %q", input, got, want)
		}
	}

	bare := &RequestContext{}
	if got := bare.AbsoluteURL("/img/a.png"); got != "/img/a.png" {
		t.Fatalf("expected path unchanged without host, got %q", got)
	}
}

func TestRequestContext_RelativePath(t *testing.T) {
	rc := &RequestContext{Host: "example.com", PathInfo: "/blog/post/1"}

	cases := map[string]string{
		"/blog/archive":     "../archive",
		"/blog/post/2":      "2",
		"/about":            "../../about",
		"/blog/post/1":      "",
		"relative/path":     "relative/path",
		"/blog/post/a:b":    "./a:b",
		"https://other.dev": "https://other.dev",
	}
	for input, want := range cases {
		if got := rc.RelativePath(input); got != want {
			t.Fatalf("RelativePath(%q) = %q, want %q", input, got, want)
		}
	}
}
