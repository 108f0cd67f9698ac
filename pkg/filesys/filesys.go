// Package filesys provides the small set of filesystem utilities the store
// needs around directory setup. It is trimmed down from a broader toolkit
// (which also covered copying trees, glob search, and cwd management) to
// CreateDir, which the store calls when it opens, and Exists; see
// DESIGN.md for what was dropped and why.
package filesys

import (
	"errors"
	"os"
)

var ErrIsNotDir = errors.New("path isn't a directory")

// CreateDir creates dirPath with the given permission if it doesn't exist.
// If the path exists and 'force' is false, the existing stat error is
// returned. If the path exists and is not a directory, ErrIsNotDir is
// returned regardless of 'force'.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if stat != nil && !stat.IsDir() {
		return ErrIsNotDir
	}
	if !force && !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dirPath, permission)
}

// Exists reports whether a file or directory exists at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
