// Package loader reads configuration sources into generic maps.
//
// File loaders return nil, nil when the file does not exist so that a
// missing config file falls back to defaults. Maps from several sources are
// combined with DeepMerge.
package loader

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader reads configuration from a source.
type Loader interface {
	// Load returns the source as a map, or nil, nil if the source doesn't exist.
	Load() (map[string]any, error)
}

// FileSystem is the file access used by file loaders.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS reads from the real file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the OS file system.
func DefaultFS() FileSystem {
	return OSFS{}
}

// MapFS serves files from memory. Used by tests.
type MapFS map[string]string

// ReadFile implements FileSystem.
func (m MapFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(data), nil
}

// ForFile returns the loader matching the file extension: .yaml/.yml use
// YAML, everything else TOML.
func ForFile(fsys FileSystem, path string) Loader {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLLoaderWithFS(fsys, path)
	default:
		return NewTOMLLoaderWithFS(fsys, path)
	}
}
