// Package layout locates view and asset directories following the
// Resources/views, Resources/assets convention of an application tree.
package layout

import (
	"os"
	"path/filepath"
)

const (
	viewsDir  = "Resources/views"
	assetsDir = "Resources/assets"
)

// Result is the outcome of a directory scan.
type Result struct {
	// BaseDir is the views directory templates are resolved against.
	BaseDir string
	// AssetDirectories lists the application assets directory followed by
	// one candidate per module directory, in scan order.
	AssetDirectories []string
}

// Resolve scans srcDir for module directories. Each one contributes an
// assets directory; the first one with a views directory becomes BaseDir.
// Without such a module BaseDir falls back to appDir's views directory.
func Resolve(srcDir, appDir string) Result {
	res := Result{
		AssetDirectories: []string{filepath.Join(appDir, assetsDir)},
	}

	entries, err := os.ReadDir(srcDir)
	if err == nil {
		for _, entry := range entries {
			dir := filepath.Join(srcDir, entry.Name())
			if !isDir(dir) {
				continue
			}
			if res.BaseDir == "" && isDir(filepath.Join(dir, viewsDir)) {
				res.BaseDir = filepath.Join(dir, viewsDir)
			}
			res.AssetDirectories = append(res.AssetDirectories, filepath.Join(dir, assetsDir))
		}
	}

	if res.BaseDir == "" {
		res.BaseDir = filepath.Join(appDir, viewsDir)
	}
	return res
}

// ViewsFor returns the views directory sitting next to an assets directory.
func ViewsFor(assetDir string) string {
	return filepath.Join(assetDir, "..", "views")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
