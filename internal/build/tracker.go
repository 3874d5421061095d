// Package build tracks the build and runner the agent is attached to.
package build

import (
	"errors"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBuildRunning  = errors.New("build already running")
	ErrNoBuild       = errors.New("no running build")
	ErrRunnerRunning = errors.New("runner already running")
	ErrNoRunner      = errors.New("no running runner")
)

// Info describes a running build.
type Info struct {
	ID          string    `json:"id"`
	CheckoutDir string    `json:"checkoutDir"`
	StartedAt   time.Time `json:"startedAt"`
	Runner      string    `json:"runner,omitempty"`
}

// Listener is notified of lifecycle transitions. Callbacks run synchronously
// while the tracker holds no lock.
type Listener interface {
	BuildStarted(info Info)
	RunnerStarted(name string)
	RunnerFinished(name string)
	BuildFinished(info Info)
}

// Tracker holds the current build state.
type Tracker struct {
	mu        sync.RWMutex
	current   *Info
	listeners []Listener
}

func NewTracker(listeners ...Listener) *Tracker {
	return &Tracker{listeners: listeners}
}

// AddListener registers l for future transitions.
func (t *Tracker) AddListener(l Listener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// Start begins a build. An empty ID is replaced with a generated one and the
// checkout directory is made absolute.
func (t *Tracker) Start(info Info) (Info, error) {
	if info.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Info{}, err
		}
		info.ID = id.String()
	}
	if info.CheckoutDir != "" {
		if abs, err := filepath.Abs(info.CheckoutDir); err == nil {
			info.CheckoutDir = abs
		}
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	info.Runner = ""

	t.mu.Lock()
	if t.current != nil {
		t.mu.Unlock()
		return Info{}, ErrBuildRunning
	}
	started := info
	t.current = &started
	listeners := t.snapshotListeners()
	t.mu.Unlock()

	log.Printf("Build: started %s (checkout %s)", info.ID, info.CheckoutDir)
	for _, l := range listeners {
		l.BuildStarted(info)
	}
	return info, nil
}

// StartRunner marks a runner (build step) as running.
func (t *Tracker) StartRunner(name string) error {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return ErrNoBuild
	}
	if t.current.Runner != "" {
		t.mu.Unlock()
		return ErrRunnerRunning
	}
	t.current.Runner = name
	listeners := t.snapshotListeners()
	t.mu.Unlock()

	log.Printf("Build: runner %q started", name)
	for _, l := range listeners {
		l.RunnerStarted(name)
	}
	return nil
}

// FinishRunner ends the current runner.
func (t *Tracker) FinishRunner() error {
	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return ErrNoBuild
	}
	name := t.current.Runner
	if name == "" {
		t.mu.Unlock()
		return ErrNoRunner
	}
	t.current.Runner = ""
	listeners := t.snapshotListeners()
	t.mu.Unlock()

	log.Printf("Build: runner %q finished", name)
	for _, l := range listeners {
		l.RunnerFinished(name)
	}
	return nil
}

// Finish ends the build, finishing a still running runner first.
func (t *Tracker) Finish() (Info, error) {
	t.mu.RLock()
	running := t.current != nil && t.current.Runner != ""
	t.mu.RUnlock()
	if running {
		if err := t.FinishRunner(); err != nil && !errors.Is(err, ErrNoRunner) {
			return Info{}, err
		}
	}

	t.mu.Lock()
	if t.current == nil {
		t.mu.Unlock()
		return Info{}, ErrNoBuild
	}
	info := *t.current
	t.current = nil
	listeners := t.snapshotListeners()
	t.mu.Unlock()

	log.Printf("Build: finished %s after %s", info.ID, time.Since(info.StartedAt).Round(time.Millisecond))
	for _, l := range listeners {
		l.BuildFinished(info)
	}
	return info, nil
}

// Current returns the running build, if any.
func (t *Tracker) Current() (Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return Info{}, false
	}
	return *t.current, true
}

// IsRunningBuild reports whether a build is in progress.
func (t *Tracker) IsRunningBuild() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current != nil
}

// CheckoutDirectory returns the checkout directory of the running build, or
// "" when there is none.
func (t *Tracker) CheckoutDirectory() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.current == nil {
		return ""
	}
	return t.current.CheckoutDir
}

func (t *Tracker) snapshotListeners() []Listener {
	out := make([]Listener, len(t.listeners))
	copy(out, t.listeners)
	return out
}
