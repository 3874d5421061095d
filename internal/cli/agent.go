package cli

import (
	"io"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"translator-agent/internal/alerts"
	"translator-agent/internal/build"
	"translator-agent/internal/collector"
	"translator-agent/internal/command"
	"translator-agent/internal/config"
	"translator-agent/internal/loader"
	"translator-agent/internal/output"
	"translator-agent/internal/registry"
	"translator-agent/internal/worker"
)

// agent is the wired line pipeline shared by serve, run and tail.
type agent struct {
	cfg       *config.Config
	metrics   *prometheus.Registry
	collector *collector.TranslatorCollector
	tracker   *build.Tracker
	registry  *registry.Registry
	alerts    *alerts.Dispatcher
	pool      *worker.Pool
}

func newAgent(cfg *config.Config, out io.Writer) (*agent, error) {
	writer, err := output.New(output.Format(cfg.OutputFormat), out)
	if err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	coll := collector.NewTranslatorCollector()
	coll.Register(metrics)

	tracker := build.NewTracker()
	reg := registry.New(loader.New(tracker), coll)
	tracker.AddListener(reg)
	if len(cfg.Parsers) > 0 {
		tracker.AddListener(&defaultParsers{registry: reg, resources: cfg.Parsers})
	}

	dispatcher := alerts.NewDispatcher(cfg.WebhookURL)
	pool := worker.NewPool(cfg.QueueSize, &worker.Processor{
		Registry: reg,
		Out:      writer,
		Metrics:  coll,
		Alerts:   dispatcher,
	})
	pool.Start()

	return &agent{
		cfg:       cfg,
		metrics:   metrics,
		collector: coll,
		tracker:   tracker,
		registry:  reg,
		alerts:    dispatcher,
		pool:      pool,
	}, nil
}

// close drains the pipeline and waits for outstanding webhooks.
func (a *agent) close() {
	a.pool.Close()
	a.alerts.Wait()
}

// startBuild drains queued lines first so they are translated under the
// previous state.
func (a *agent) startBuild(id, checkout string) (build.Info, error) {
	if err := a.pool.Sync(); err != nil {
		return build.Info{}, err
	}
	return a.tracker.Start(build.Info{ID: id, CheckoutDir: checkout})
}

func (a *agent) finishBuild() error {
	if err := a.pool.Sync(); err != nil {
		return err
	}
	_, err := a.tracker.Finish()
	return err
}

// defaultParsers enables the configured resources for every build.
type defaultParsers struct {
	registry  *registry.Registry
	resources []string
}

func (d *defaultParsers) BuildStarted(build.Info) {
	for _, res := range d.resources {
		if err := d.registry.Register(command.ScopeBuild, command.ParserID{ResourcePath: res}); err != nil {
			log.Printf("Agent: default parser %s: %v", res, err)
		}
	}
}

func (d *defaultParsers) RunnerStarted(string)     {}
func (d *defaultParsers) RunnerFinished(string)    {}
func (d *defaultParsers) BuildFinished(build.Info) {}
