// Package exporting serializes snapshots into the supported output formats.
package exporting

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Format defines the interface for an output format.
type Format interface {
	Name() string
	Extensions() []string
	Writer() Writer
}

// Registry management
var (
	registry    = make(map[string]Format)
	extRegistry = make(map[string]Format)
)

// Register adds a format to the registry.
func Register(f Format) {
	name := strings.ToLower(f.Name())
	registry[name] = f
	for _, ext := range f.Extensions() {
		extRegistry[strings.ToLower(ext)] = f
	}
}

// Get returns a format by name.
func Get(name string) (Format, bool) {
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// GetByExtension returns a format by file extension.
func GetByExtension(ext string) (Format, bool) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	f, ok := extRegistry[ext]
	return f, ok
}

// GetByPath returns a format based on the file's extension.
func GetByPath(path string) (Format, bool) {
	return GetByExtension(filepath.Ext(path))
}

// Names lists the registered format names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the format for an output. An explicit name wins; otherwise the
// file extension decides.
func Resolve(name, path string) (Format, error) {
	if name != "" {
		f, ok := Get(name)
		if !ok {
			return nil, fmt.Errorf("unsupported format: %s (valid: %s)", name, strings.Join(Names(), ", "))
		}
		return f, nil
	}
	if f, ok := GetByPath(path); ok {
		return f, nil
	}
	return nil, fmt.Errorf("unsupported format for file: %s", path)
}
