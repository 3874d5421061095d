package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"translator-agent/internal/command"
)

type TranslatorCollector struct {
	// Command protocol
	Commands *prometheus.CounterVec

	// Registry
	ParserLoads *prometheus.CounterVec
	Active      *prometheus.GaugeVec
	Lines       *prometheus.CounterVec
	Passthrough prometheus.Counter

	// Runner process
	RunnerRSS *prometheus.GaugeVec
	RunnerCPU *prometheus.GaugeVec
}

func NewTranslatorCollector() *TranslatorCollector {
	return &TranslatorCollector{
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "translator_commands_total",
				Help: "Total number of RegexMessageParser commands received.",
			},
			[]string{"command", "scope", "result"},
		),
		ParserLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "translator_parser_loads_total",
				Help: "Total number of parser definition loads.",
			},
			[]string{"source", "result"},
		),
		Active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "translator_active_parsers",
				Help: "Number of parsers currently enabled per scope.",
			},
			[]string{"scope"},
		),
		Lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "translator_lines_total",
				Help: "Total number of log lines handled by a parser.",
			},
			[]string{"parser"},
		),
		Passthrough: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "translator_passthrough_lines_total",
				Help: "Total number of log lines no parser handled.",
			},
		),
		RunnerRSS: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "translator_runner_rss_bytes",
				Help: "Resident memory of the running build step.",
			},
			[]string{"runner"},
		),
		RunnerCPU: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "translator_runner_cpu_percent",
				Help: "CPU usage of the running build step.",
			},
			[]string{"runner"},
		),
	}
}

func (c *TranslatorCollector) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.Commands,
		c.ParserLoads,
		c.Active,
		c.Lines,
		c.Passthrough,
		c.RunnerRSS,
		c.RunnerCPU,
	)
}

// CommandApplied records the outcome of one command. A nil err counts as "ok",
// otherwise the error code (or "error") is the result.
func (c *TranslatorCollector) CommandApplied(name string, scope command.Scope, err error) {
	result := "ok"
	if err != nil {
		result = string(command.CodeOf(err))
		if result == "" {
			result = "error"
		}
	}
	c.Commands.WithLabelValues(name, string(scope), result).Inc()
}

func (c *TranslatorCollector) ParserLoaded(source, result string) {
	c.ParserLoads.WithLabelValues(source, result).Inc()
}

func (c *TranslatorCollector) ActiveParsers(scope command.Scope, n int) {
	c.Active.WithLabelValues(string(scope)).Set(float64(n))
}

func (c *TranslatorCollector) LineTranslated(parser string) {
	c.Lines.WithLabelValues(parser).Inc()
}

func (c *TranslatorCollector) LinePassedThrough() {
	c.Passthrough.Inc()
}

func (c *TranslatorCollector) RunnerSample(runner string, rss uint64, cpu float64) {
	c.RunnerRSS.WithLabelValues(runner).Set(float64(rss))
	c.RunnerCPU.WithLabelValues(runner).Set(cpu)
}

// RunnerGone drops the samples of a finished runner.
func (c *TranslatorCollector) RunnerGone(runner string) {
	c.RunnerRSS.DeleteLabelValues(runner)
	c.RunnerCPU.DeleteLabelValues(runner)
}
