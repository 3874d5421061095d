package worker

import (
	"errors"
	"log"

	"translator-agent/internal/command"
	"translator-agent/internal/output"
	"translator-agent/internal/parser"
	"translator-agent/internal/servicemsg"
)

// Translator is the registry as seen by the pipeline.
type Translator interface {
	command.Registry
	Translate(line string, out parser.Logger) (string, bool)
}

// Metrics receives pipeline outcomes.
type Metrics interface {
	CommandApplied(name string, scope command.Scope, err error)
	LinePassedThrough()
}

// Alerter is told about commands that could not be applied.
type Alerter interface {
	CommandRejected(source, line string, err error)
}

// Processor routes each line: RegexMessageParser commands are applied to the
// registry and consumed, everything else is offered to the active translators
// and written through unchanged when none handles it.
type Processor struct {
	Registry Translator
	Out      output.Writer
	Metrics  Metrics
	Alerts   Alerter
}

func (p *Processor) Process(source, line string) error {
	msg, err := servicemsg.Parse(line)
	if err == nil && command.IsCommandName(msg.Name) {
		return p.handleCommand(source, line, msg)
	}
	var syntaxErr *servicemsg.SyntaxError
	if errors.As(err, &syntaxErr) {
		log.Printf("Worker: %s: %v", source, err)
	}

	if _, ok := p.Registry.Translate(line, p.Out); ok {
		return nil
	}
	if p.Metrics != nil {
		p.Metrics.LinePassedThrough()
	}
	p.Out.Raw(line)
	return nil
}

func (p *Processor) handleCommand(source, line string, msg servicemsg.Message) error {
	cmd, err := command.Parse(msg)
	if err == nil {
		err = command.Apply(cmd, p.Registry)
	}

	scope := command.Scope("")
	if cmd != nil {
		scope = cmd.CommandScope()
	}
	if p.Metrics != nil {
		p.Metrics.CommandApplied(msg.Name, scope, err)
	}
	if err == nil {
		return nil
	}

	log.Printf("Worker: %s: rejected %s: %v", source, msg.Name, err)
	if p.Alerts != nil {
		p.Alerts.CommandRejected(source, line, err)
	}
	return err
}
