package looper

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var errEmptyPath = errors.New("no path given")

// ResolvePath turns path into the absolute identity the cache keys on.
// Relative paths resolve against baseDir, or the working directory when
// baseDir is empty. A leading "~/" expands to the home directory.
func ResolvePath(baseDir, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", errEmptyPath
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	if !filepath.IsAbs(path) && strings.TrimSpace(baseDir) != "" {
		path = filepath.Join(baseDir, path)
	}
	return filepath.Abs(path)
}
