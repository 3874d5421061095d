// Package registry keeps the translators enabled for the running build,
// grouped by the scope they were enabled in.
package registry

import (
	"fmt"
	"log"
	"sync"
	"time"

	"translator-agent/internal/build"
	"translator-agent/internal/command"
	"translator-agent/internal/parser"
)

// Loader resolves an identifier to a translator. A nil parser with a nil
// error means there is nothing to register.
type Loader interface {
	Load(id command.ParserID) (*parser.RegexParser, error)
}

// Metrics receives registry events. Any method may be a no-op.
type Metrics interface {
	ParserLoaded(source, result string)
	ActiveParsers(scope command.Scope, n int)
	LineTranslated(parser string)
}

// Active describes one enabled translator.
type Active struct {
	Scope    command.Scope `json:"scope"`
	Key      string        `json:"key"`
	Name     string        `json:"name"`
	Source   string        `json:"source"`
	Rules    int           `json:"rules"`
	LoadedAt time.Time     `json:"loadedAt"`
}

type entry struct {
	key      string
	id       command.ParserID
	parser   *parser.RegexParser
	loadedAt time.Time
}

// Registry implements command.Registry and build.Listener.
type Registry struct {
	mu      sync.RWMutex
	loader  Loader
	metrics Metrics
	scopes  map[command.Scope][]*entry
}

var (
	_ command.Registry = (*Registry)(nil)
	_ build.Listener   = (*Registry)(nil)
)

// New returns an empty registry. metrics may be nil.
func New(loader Loader, metrics Metrics) *Registry {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Registry{
		loader:  loader,
		metrics: metrics,
		scopes:  make(map[command.Scope][]*entry),
	}
}

// Register loads id and enables it in scope, replacing an entry with the
// same key.
func (r *Registry) Register(scope command.Scope, id command.ParserID) error {
	source := sourceKind(id)
	p, err := r.loader.Load(id)
	if err != nil {
		r.metrics.ParserLoaded(source, resultOf(err))
		return err
	}
	if p == nil {
		r.metrics.ParserLoaded(source, "empty")
		log.Printf("Registry: nothing to register for %s", id)
		return nil
	}
	r.metrics.ParserLoaded(source, "ok")

	e := &entry{key: id.Key(), id: id, parser: p, loadedAt: time.Now()}

	r.mu.Lock()
	r.scopes[scope] = upsert(r.scopes[scope], e)
	n := len(r.scopes[scope])
	r.mu.Unlock()

	r.metrics.ActiveParsers(scope, n)
	log.Printf("Registry: enabled %s (%d rules) in scope %s", p.Name(), p.RuleCount(), scope)
	return nil
}

// Unregister disables id in scope. Unknown identifiers are ignored.
func (r *Registry) Unregister(scope command.Scope, id command.ParserID) error {
	key := id.Key()

	r.mu.Lock()
	entries, removed := remove(r.scopes[scope], key)
	r.scopes[scope] = entries
	n := len(entries)
	r.mu.Unlock()

	if !removed {
		log.Printf("Registry: %s is not enabled in scope %s", key, scope)
		return nil
	}
	r.metrics.ActiveParsers(scope, n)
	log.Printf("Registry: disabled %s in scope %s", key, scope)
	return nil
}

// Reset disables every translator in scope.
func (r *Registry) Reset(scope command.Scope) error {
	r.mu.Lock()
	n := len(r.scopes[scope])
	delete(r.scopes, scope)
	r.mu.Unlock()

	r.metrics.ActiveParsers(scope, 0)
	log.Printf("Registry: reset scope %s (%d removed)", scope, n)
	return nil
}

// BuildStarted drops anything left over from a previous build.
func (r *Registry) BuildStarted(build.Info) { r.clear() }

// BuildFinished drops every scope.
func (r *Registry) BuildFinished(build.Info) { r.clear() }

// RunnerStarted moves next-runner translators into the runner scope.
func (r *Registry) RunnerStarted(name string) {
	r.mu.Lock()
	next := r.scopes[command.ScopeNextRunner]
	delete(r.scopes, command.ScopeNextRunner)
	current := r.scopes[command.ScopeThisRunner]
	for _, e := range next {
		current = upsert(current, e)
	}
	r.scopes[command.ScopeThisRunner] = current
	n := len(current)
	r.mu.Unlock()

	r.metrics.ActiveParsers(command.ScopeNextRunner, 0)
	r.metrics.ActiveParsers(command.ScopeThisRunner, n)
	if len(next) > 0 {
		log.Printf("Registry: runner %q activated %d pending parser(s)", name, len(next))
	}
}

// RunnerFinished drops the runner scope.
func (r *Registry) RunnerFinished(string) {
	_ = r.Reset(command.ScopeThisRunner)
}

// Translate offers line to runner translators, then build translators, in
// registration order. The first one that handles it wins.
func (r *Registry) Translate(line string, out parser.Logger) (string, bool) {
	r.mu.RLock()
	candidates := make([]*parser.RegexParser, 0, len(r.scopes[command.ScopeThisRunner])+len(r.scopes[command.ScopeBuild]))
	for _, scope := range []command.Scope{command.ScopeThisRunner, command.ScopeBuild} {
		for _, e := range r.scopes[scope] {
			candidates = append(candidates, e.parser)
		}
	}
	r.mu.RUnlock()

	for _, p := range candidates {
		if p.Process(line, out) {
			r.metrics.LineTranslated(p.Name())
			return p.Name(), true
		}
	}
	return "", false
}

// Snapshot lists the enabled translators ordered by scope, then
// registration order.
func (r *Registry) Snapshot() []Active {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Active
	for _, scope := range command.Scopes() {
		for _, e := range r.scopes[scope] {
			out = append(out, Active{
				Scope:    scope,
				Key:      e.key,
				Name:     e.parser.Name(),
				Source:   e.parser.Source(),
				Rules:    e.parser.RuleCount(),
				LoadedAt: e.loadedAt,
			})
		}
	}
	return out
}

// Files returns the canonical path of every file-backed translator, keyed
// by registry key.
func (r *Registry) Files() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files := make(map[string]string)
	for _, entries := range r.scopes {
		for _, e := range entries {
			if e.id.ResourcePath == "" && e.id.File != "" {
				files[e.key] = e.parser.Source()
			}
		}
	}
	return files
}

// Reload loads key again and swaps the new translator into every scope
// holding it. On failure the previous translator stays active.
func (r *Registry) Reload(key string) error {
	r.mu.RLock()
	var id command.ParserID
	found := false
	for _, entries := range r.scopes {
		for _, e := range entries {
			if e.key == key {
				id, found = e.id, true
			}
		}
	}
	r.mu.RUnlock()
	if !found {
		return fmt.Errorf("reload %s: not registered", key)
	}

	p, err := r.loader.Load(id)
	if err != nil {
		r.metrics.ParserLoaded(sourceKind(id), resultOf(err))
		return fmt.Errorf("reload %s: %w", key, err)
	}
	if p == nil {
		r.metrics.ParserLoaded(sourceKind(id), "empty")
		return fmt.Errorf("reload %s: definition disappeared", key)
	}
	r.metrics.ParserLoaded(sourceKind(id), "ok")

	now := time.Now()
	r.mu.Lock()
	for _, entries := range r.scopes {
		for _, e := range entries {
			if e.key == key {
				e.parser = p
				e.loadedAt = now
			}
		}
	}
	r.mu.Unlock()

	log.Printf("Registry: reloaded %s", key)
	return nil
}

func (r *Registry) clear() {
	r.mu.Lock()
	r.scopes = make(map[command.Scope][]*entry)
	r.mu.Unlock()

	for _, scope := range command.Scopes() {
		r.metrics.ActiveParsers(scope, 0)
	}
}

func upsert(entries []*entry, e *entry) []*entry {
	for i, old := range entries {
		if old.key == e.key {
			entries[i] = e
			return entries
		}
	}
	return append(entries, e)
}

func remove(entries []*entry, key string) ([]*entry, bool) {
	for i, e := range entries {
		if e.key == key {
			return append(entries[:i:i], entries[i+1:]...), true
		}
	}
	return entries, false
}

func sourceKind(id command.ParserID) string {
	switch {
	case id.ResourcePath != "":
		return "resource"
	case id.File != "":
		return "file"
	default:
		return "name"
	}
}

func resultOf(err error) string {
	if code := command.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

type noopMetrics struct{}

func (noopMetrics) ParserLoaded(string, string)      {}
func (noopMetrics) ActiveParsers(command.Scope, int) {}
func (noopMetrics) LineTranslated(string)            {}
