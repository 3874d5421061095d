package monitor

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefinitionSource lists file-backed translators and reloads them by key.
type DefinitionSource interface {
	Files() map[string]string
	Reload(key string) error
}

// DefinitionWatcher polls the definitions of file-backed translators and
// reloads them when their modification time changes.
type DefinitionWatcher struct {
	Source       DefinitionSource
	ChangeMetric *prometheus.CounterVec

	mu     sync.Mutex
	mtimes map[string]int64 // path -> ModTime().UnixNano()
}

func NewDefinitionWatcher(src DefinitionSource) *DefinitionWatcher {
	return &DefinitionWatcher{
		Source: src,
		mtimes: make(map[string]int64),
		ChangeMetric: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "translator_definition_reloads_total",
			Help: "Total number of parser definition reloads triggered by file changes",
		}, []string{"result"}),
	}
}

func (w *DefinitionWatcher) Register(reg prometheus.Registerer) {
	reg.MustRegister(w.ChangeMetric)
}

// Run checks every interval until ctx is done.
func (w *DefinitionWatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.CheckAll()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// CheckAll compares every watched definition with its last seen mtime. A
// definition seen for the first time is only recorded.
func (w *DefinitionWatcher) CheckAll() {
	files := w.Source.Files()

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(files))
	for key, path := range files {
		seen[path] = true
		info, err := os.Stat(path)
		if err != nil {
			// gone; the registry keeps the last good copy
			continue
		}

		current := info.ModTime().UnixNano()
		last, exists := w.mtimes[path]
		w.mtimes[path] = current
		if !exists || current == last {
			continue
		}

		if err := w.Source.Reload(key); err != nil {
			log.Printf("DefinitionWatcher: reload of %s failed: %v", path, err)
			w.ChangeMetric.WithLabelValues("failed").Inc()
			continue
		}
		w.ChangeMetric.WithLabelValues("ok").Inc()
	}

	for path := range w.mtimes {
		if !seen[path] {
			delete(w.mtimes, path)
		}
	}
}
