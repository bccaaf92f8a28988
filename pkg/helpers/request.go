package helpers

import "strings"

// RequestContext describes the current request for URL helpers.
type RequestContext struct {
	Scheme string
	Host   string
	// BaseURL is the path the application is mounted under ("/app").
	BaseURL string
	// PathInfo is the request path relative to BaseURL ("/blog/post").
	PathInfo string
}

func (rc *RequestContext) schemeAndHost() string {
	scheme := rc.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + rc.Host
}

// AbsoluteURL turns path into an absolute URL. Relative paths resolve
// against the directory of the current request. Without a host the path is
// returned unchanged.
func (rc *RequestContext) AbsoluteURL(path string) string {
	if isAbsoluteURL(path) || rc.Host == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return rc.schemeAndHost() + path
	}

	prefix := rc.PathInfo
	if idx := strings.LastIndexByte(prefix, '/'); idx != len(prefix)-1 {
		prefix = prefix[:idx+1]
	}
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return rc.schemeAndHost() + rc.BaseURL + prefix + path
}

// RelativePath returns path relative to the current request path. Paths
// that are not rooted are returned unchanged.
func (rc *RequestContext) RelativePath(path string) string {
	if isAbsoluteURL(path) || path == "" || path[0] != '/' {
		return path
	}
	if path == rc.PathInfo {
		return ""
	}

	base := strings.TrimPrefix(rc.PathInfo, "/")
	sourceDirs := strings.Split(base, "/")
	sourceDirs = sourceDirs[:len(sourceDirs)-1]
	targetDirs := strings.Split(path[1:], "/")
	targetFile := targetDirs[len(targetDirs)-1]
	targetDirs = targetDirs[:len(targetDirs)-1]

	common := 0
	for common < len(sourceDirs) && common < len(targetDirs) && sourceDirs[common] == targetDirs[common] {
		common++
	}

	parts := append(append([]string{}, targetDirs[common:]...), targetFile)
	rel := strings.Repeat("../", len(sourceDirs)-common) + strings.Join(parts, "/")

	if rel == "" || rel[0] == '/' {
		return "./" + rel
	}
	if colon := strings.IndexByte(rel, ':'); colon >= 0 {
		slash := strings.IndexByte(rel, '/')
		if slash < 0 || colon < slash {
			return "./" + rel
		}
	}
	return rel
}

// HTTP exposes generateAbsoluteUrl and generateRelativePath.
func HTTP(rc *RequestContext) Methods {
	return Methods{
		"generateAbsoluteUrl":  rc.AbsoluteURL,
		"generateRelativePath": rc.RelativePath,
	}
}
