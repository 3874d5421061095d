package parser

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the only definition format version understood.
const CurrentVersion = 1

// Definition is the on-disk form of a translator.
//
// Example:
//
//	version: 1
//	name: maven
//	rules:
//	  - id: compile-error
//	    regex: '^\[ERROR\] (?P<text>.+)$'
//	    action: error
//	    format: '${text}'
type Definition struct {
	Version     int        `yaml:"version"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Rules       []RuleSpec `yaml:"rules"`
}

// RuleSpec is one regex rule inside a definition. Rules are tried in order.
type RuleSpec struct {
	ID     string `yaml:"id"`
	Regex  string `yaml:"regex"`
	Action Action `yaml:"action"`
	// Format is a regexp.Expand template. Empty means the whole line.
	Format string `yaml:"format,omitempty"`
}

// Action is what a matching rule does with the line.
type Action string

const (
	ActionMessage     Action = "message"
	ActionWarning     Action = "warning"
	ActionError       Action = "error"
	ActionBlockStart  Action = "block-start"
	ActionBlockFinish Action = "block-finish"
	ActionIgnore      Action = "ignore"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionMessage, ActionWarning, ActionError, ActionBlockStart, ActionBlockFinish, ActionIgnore:
		return true
	default:
		return false
	}
}

// DefinitionError reports why a definition could not be turned into a parser.
type DefinitionError struct {
	Source string
	Rule   string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("parser definition %s: rule %q: %s", e.Source, e.Rule, e.Reason)
	}
	return fmt.Sprintf("parser definition %s: %s", e.Source, e.Reason)
}

// IsDefinitionError reports whether err came from decoding or compiling a definition.
func IsDefinitionError(err error) bool {
	var de *DefinitionError
	return errors.As(err, &de)
}

// Decode parses YAML bytes and compiles them into a RegexParser.
// source is used in error messages and as the parser's origin.
func Decode(source string, data []byte) (*RegexParser, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, &DefinitionError{Source: source, Reason: fmt.Sprintf("decode yaml: %v", err)}
	}
	return Compile(source, def)
}

// Compile validates a definition and compiles its rules.
func Compile(source string, def Definition) (*RegexParser, error) {
	if def.Version != CurrentVersion {
		return nil, &DefinitionError{Source: source, Reason: fmt.Sprintf("unsupported version %d", def.Version)}
	}
	if len(def.Rules) == 0 {
		return nil, &DefinitionError{Source: source, Reason: "no rules defined"}
	}

	name := strings.TrimSpace(def.Name)
	if name == "" {
		name = source
	}

	seen := make(map[string]bool, len(def.Rules))
	rules := make([]rule, 0, len(def.Rules))
	for i, rs := range def.Rules {
		id := strings.TrimSpace(rs.ID)
		if id == "" {
			id = fmt.Sprintf("rule-%d", i+1)
		}
		if seen[id] {
			return nil, &DefinitionError{Source: source, Rule: id, Reason: "duplicate rule id"}
		}
		seen[id] = true

		if !rs.Action.Valid() {
			return nil, &DefinitionError{Source: source, Rule: id, Reason: fmt.Sprintf("unknown action %q", rs.Action)}
		}
		if rs.Regex == "" {
			return nil, &DefinitionError{Source: source, Rule: id, Reason: "empty regex"}
		}
		re, err := regexp.Compile(rs.Regex)
		if err != nil {
			return nil, &DefinitionError{Source: source, Rule: id, Reason: err.Error()}
		}
		rules = append(rules, rule{id: id, re: re, action: rs.Action, format: rs.Format})
	}

	return &RegexParser{
		name:        name,
		description: def.Description,
		source:      source,
		rules:       rules,
	}, nil
}
