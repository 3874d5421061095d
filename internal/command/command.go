// Package command turns RegexMessageParser service messages into typed
// commands and applies them to a parser registry.
package command

import (
	"fmt"
	"strings"

	"translator-agent/internal/servicemsg"
)

// Command names understood by the agent.
const (
	Prefix  = "RegexMessageParser."
	Enable  = Prefix + "Enable"
	Disable = Prefix + "Disable"
	Reset   = Prefix + "Reset"
)

var names = [...]string{Enable, Disable, Reset}

// Names returns the supported command names.
func Names() []string {
	out := names
	return out[:]
}

// IsCommandName reports whether a service message name belongs to this
// protocol. Unknown names with the prefix still count, so that they reach
// Parse and are rejected loudly.
func IsCommandName(name string) bool {
	return strings.HasPrefix(name, Prefix)
}

// Registry is the consumer of applied commands. Implementations are
// responsible for loading the parser an identifier names.
type Registry interface {
	Register(scope Scope, id ParserID) error
	Unregister(scope Scope, id ParserID) error
	Reset(scope Scope) error
}

// Command is one of EnableCommand, DisableCommand or ResetCommand.
type Command interface {
	Name() string
	CommandScope() Scope
	command()
}

// EnableCommand activates a parser in a scope.
type EnableCommand struct {
	Scope Scope
	ID    ParserID
}

// DisableCommand deactivates a parser in a scope.
type DisableCommand struct {
	Scope Scope
	ID    ParserID
}

// ResetCommand deactivates every parser in a scope.
type ResetCommand struct {
	Scope Scope
}

func (EnableCommand) Name() string  { return Enable }
func (DisableCommand) Name() string { return Disable }
func (ResetCommand) Name() string   { return Reset }

func (c EnableCommand) CommandScope() Scope  { return c.Scope }
func (c DisableCommand) CommandScope() Scope { return c.Scope }
func (c ResetCommand) CommandScope() Scope   { return c.Scope }

func (EnableCommand) command()  {}
func (DisableCommand) command() {}
func (ResetCommand) command()   {}

// Parse converts a service message into a Command. Scope is resolved before
// the identifier; both must succeed.
func Parse(msg servicemsg.Message) (Command, error) {
	switch msg.Name {
	case Enable:
		scope, id, err := scopeAndID(msg)
		if err != nil {
			return nil, err
		}
		return EnableCommand{Scope: scope, ID: id}, nil
	case Disable:
		scope, id, err := scopeAndID(msg)
		if err != nil {
			return nil, err
		}
		return DisableCommand{Scope: scope, ID: id}, nil
	case Reset:
		return ResetCommand{Scope: scopeOf(msg)}, nil
	default:
		return nil, NewUnsupportedCommandError(msg.Name)
	}
}

// ParseLine parses a raw log line holding a service message.
func ParseLine(line string) (Command, error) {
	msg, err := servicemsg.Parse(line)
	if err != nil {
		return nil, err
	}
	return Parse(msg)
}

// Apply dispatches cmd to the matching registry operation.
func Apply(cmd Command, reg Registry) error {
	switch c := cmd.(type) {
	case EnableCommand:
		return reg.Register(c.Scope, c.ID)
	case DisableCommand:
		return reg.Unregister(c.Scope, c.ID)
	case ResetCommand:
		return reg.Reset(c.Scope)
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
}

// Message renders cmd back into a service message.
func Message(cmd Command) servicemsg.Message {
	attrs := map[string]string{AttrScope: string(cmd.CommandScope())}
	var id ParserID
	switch c := cmd.(type) {
	case EnableCommand:
		id = c.ID
	case DisableCommand:
		id = c.ID
	}
	if id.Name != "" {
		attrs[AttrName] = id.Name
	}
	if id.ResourcePath != "" {
		attrs[AttrResource] = id.ResourcePath
	}
	if id.File != "" {
		attrs[AttrFile] = id.File
	}
	return servicemsg.Message{Name: cmd.Name(), Attributes: attrs}
}

func scopeOf(msg servicemsg.Message) Scope {
	return ResolveScope(msg.Attr(AttrScope), DefaultScope)
}

func scopeAndID(msg servicemsg.Message) (Scope, ParserID, error) {
	scope := scopeOf(msg)
	id, err := NewParserID(msg.Attributes, msg.Argument)
	if err != nil {
		return "", ParserID{}, err
	}
	return scope, id, nil
}
