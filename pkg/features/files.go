package features

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigDirName is the per-user directory searched for config and credential
// files, under the user's home directory.
const ConfigDirName = ".di"

// CurrentOrHome returns the ordered candidate directories for config
// discovery: the current working directory, then the per-user config
// directory.
func CurrentOrHome() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ConfigDirName))
	}
	return paths
}

// FileLocator finds files using an ordered list of directories.
type FileLocator struct {
	paths []string
}

// NewFileLocator creates a locator over the given directories, searched in
// order.
func NewFileLocator(paths ...string) *FileLocator {
	return &FileLocator{paths: paths}
}

// Find returns the path of the first directory entry matching name that is a
// regular file. It returns os.ErrNotExist (wrapped) when no candidate
// matches.
func (l *FileLocator) Find(name string) (string, error) {
	for _, dir := range l.paths {
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%q not found in %v: %w", name, l.paths, os.ErrNotExist)
}

// FindFile searches the given directories for name, first match wins.
func FindFile(paths []string, name string) (string, error) {
	return NewFileLocator(paths...).Find(name)
}
