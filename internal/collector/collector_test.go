package collector

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translator-agent/internal/command"
)

func TestCommandApplied(t *testing.T) {
	c := NewTranslatorCollector()

	c.CommandApplied(command.Enable, command.ScopeBuild, nil)
	c.CommandApplied(command.Enable, command.ScopeBuild, nil)
	c.CommandApplied(command.Enable, command.ScopeThisRunner, command.NewFileNotFoundError("/x"))
	c.CommandApplied(command.Reset, command.ScopeBuild, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Commands.WithLabelValues(command.Enable, "build", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues(command.Enable, "runner", "FILE_NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues(command.Reset, "build", "error")))
}

func TestRegistryMetrics(t *testing.T) {
	c := NewTranslatorCollector()

	c.ParserLoaded("resource", "ok")
	c.ActiveParsers(command.ScopeBuild, 3)
	c.ActiveParsers(command.ScopeBuild, 2)
	c.LineTranslated("maven")
	c.LineTranslated("maven")
	c.LinePassedThrough()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ParserLoads.WithLabelValues("resource", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Active.WithLabelValues("build")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Lines.WithLabelValues("maven")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Passthrough))
}

func TestRunnerSamples(t *testing.T) {
	c := NewTranslatorCollector()

	c.RunnerSample("compile", 4096, 12.5)
	assert.Equal(t, 4096.0, testutil.ToFloat64(c.RunnerRSS.WithLabelValues("compile")))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.RunnerCPU.WithLabelValues("compile")))

	c.RunnerGone("compile")
	assert.Equal(t, 0, testutil.CollectAndCount(c.RunnerRSS))
}

func TestRegister(t *testing.T) {
	c := NewTranslatorCollector()
	reg := prometheus.NewPedanticRegistry()
	c.Register(reg)

	c.ActiveParsers(command.ScopeThisRunner, 1)
	expected := `
# HELP translator_active_parsers Number of parsers currently enabled per scope.
# TYPE translator_active_parsers gauge
translator_active_parsers{scope="runner"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "translator_active_parsers"))
}
