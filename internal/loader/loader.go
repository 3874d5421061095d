// Package loader resolves a parser identifier to a compiled translator.
package loader

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"translator-agent/internal/command"
	"translator-agent/internal/parser"
)

// BuildTracker exposes the state of the build the agent is attached to.
// CheckoutDirectory is only meaningful while IsRunningBuild is true.
type BuildTracker interface {
	IsRunningBuild() bool
	CheckoutDirectory() string
}

// ResourceLoader loads bundled definitions. It returns (nil, nil) when the
// resource does not exist.
type ResourceLoader interface {
	LoadResource(path string) (*parser.RegexParser, error)
}

// FileLoader loads a definition from a canonical file path.
type FileLoader interface {
	LoadFile(path string) (*parser.RegexParser, error)
}

// Swapped in tests to simulate files vanishing between checks.
var (
	statFile     = os.Stat
	evalSymlinks = filepath.EvalSymlinks
)

// Loader turns a command.ParserID into a RegexParser.
type Loader struct {
	Tracker   BuildTracker
	Resources ResourceLoader
	Files     FileLoader
}

// New returns a Loader backed by the built-in presets and the local file system.
func New(tracker BuildTracker) *Loader {
	return &Loader{
		Tracker:   tracker,
		Resources: parser.NewBundled(),
		Files:     parser.Files{},
	}
}

// Load resolves id. Resources take precedence over files; a name-only
// identifier resolves to nothing. A nil parser with a nil error means there
// is nothing to load.
func (l *Loader) Load(id command.ParserID) (*parser.RegexParser, error) {
	if !blank(id.ResourcePath) {
		return l.loadResource(id.ResourcePath)
	}
	if !blank(id.File) {
		return l.loadFile(id.File)
	}
	return nil, nil
}

func (l *Loader) loadResource(path string) (*parser.RegexParser, error) {
	log.Printf("Loader: loading parser config from resource %s", path)
	p, err := l.Resources.LoadResource(path)
	if err != nil {
		if parser.IsDefinitionError(err) {
			return nil, command.NewInvalidDefinitionError(path, err)
		}
		return nil, command.NewIOError(path, err)
	}
	if p == nil {
		err := command.NewResourceNotFoundError(path)
		log.Printf("Loader: WARN %s", err.Message)
		return nil, err
	}
	return p, nil
}

func (l *Loader) loadFile(path string) (*parser.RegexParser, error) {
	file, err := l.resolve(path)
	if err != nil {
		return nil, err
	}

	if _, err := statFile(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if abs, absErr := filepath.Abs(file); absErr == nil {
				file = abs
			}
			nf := command.NewFileNotFoundError(file)
			log.Printf("Loader: WARN %s", nf.Message)
			return nil, nf
		}
		return nil, command.NewIOError(file, err)
	}

	canonical, err := canonicalize(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Loader: %s disappeared during canonicalization, nothing to load", file)
			return nil, nil
		}
		return nil, command.NewIOError(file, err)
	}
	if _, err := statFile(canonical); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Loader: canonical path %s does not exist, nothing to load", canonical)
			return nil, nil
		}
		return nil, command.NewIOError(canonical, err)
	}

	log.Printf("Loader: loading parser config from file %s", canonical)
	p, err := l.Files.LoadFile(canonical)
	if err != nil {
		if parser.IsDefinitionError(err) {
			return nil, command.NewInvalidDefinitionError(canonical, err)
		}
		return nil, command.NewIOError(canonical, err)
	}
	return p, nil
}

// resolve returns the absolute candidate path for a configured file.
func (l *Loader) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	if l.Tracker == nil || !l.Tracker.IsRunningBuild() || blank(l.Tracker.CheckoutDirectory()) {
		err := command.NewNoActiveBuildError(path)
		log.Printf("Loader: ERROR %s", err.Message)
		return "", err
	}
	return filepath.Join(l.Tracker.CheckoutDirectory(), path), nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return evalSymlinks(abs)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
