package parser

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// PresetDir is the resource directory holding bundled definitions.
const PresetDir = "presets"

// Preset describes a bundled translator definition.
type Preset struct {
	Resource    string
	Name        string
	Description string
	Rules       int
}

// Bundled loads translator definitions from a read-only file system,
// by default the presets compiled into the binary.
type Bundled struct {
	fsys fs.FS
}

// NewBundled returns a loader over the built-in presets.
func NewBundled() *Bundled {
	return &Bundled{fsys: presetFS}
}

// NewBundledFS returns a loader over an arbitrary file system.
func NewBundledFS(fsys fs.FS) *Bundled {
	return &Bundled{fsys: fsys}
}

// LoadResource loads the definition stored at resource. It returns
// (nil, nil) when no such resource exists.
func (b *Bundled) LoadResource(resource string) (*RegexParser, error) {
	key := cleanResource(resource)
	if key == "" {
		return nil, nil
	}
	info, err := fs.Stat(b.fsys, key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat resource %s: %w", key, err)
	}
	if info.IsDir() {
		return nil, nil
	}
	data, err := fs.ReadFile(b.fsys, key)
	if err != nil {
		return nil, fmt.Errorf("read resource %s: %w", key, err)
	}
	return Decode(key, data)
}

// Presets lists every bundled definition, sorted by resource path.
func (b *Bundled) Presets() ([]Preset, error) {
	var presets []Preset
	for _, resource := range b.resources() {
		p, err := b.LoadResource(resource)
		if err != nil {
			return nil, err
		}
		if p == nil {
			continue
		}
		presets = append(presets, Preset{
			Resource:    resource,
			Name:        p.Name(),
			Description: p.Description(),
			Rules:       p.RuleCount(),
		})
	}
	return presets, nil
}

// AvailablePresets returns the resource paths of all built-in presets.
func AvailablePresets() []string {
	return NewBundled().resources()
}

func (b *Bundled) resources() []string {
	entries, err := fs.ReadDir(b.fsys, PresetDir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, path.Join(PresetDir, e.Name()))
	}
	sort.Strings(names)
	return names
}

// cleanResource normalises a resource key: forward slashes, no leading
// slash, no "." or ".." segments.
func cleanResource(resource string) string {
	resource = strings.TrimSpace(resource)
	if resource == "" {
		return ""
	}
	resource = strings.ReplaceAll(resource, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+resource), "/")
}

// Files loads definitions from the local file system.
type Files struct{}

// LoadFile reads and compiles the definition at filename.
func (Files) LoadFile(filename string) (*RegexParser, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Decode(filename, data)
}
