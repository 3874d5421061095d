package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures Logger calls as "kind:text" strings.
type recorder struct {
	events []string
}

func (r *recorder) Message(text string)     { r.events = append(r.events, "message:"+text) }
func (r *recorder) Warning(text string)     { r.events = append(r.events, "warning:"+text) }
func (r *recorder) Error(text string)       { r.events = append(r.events, "error:"+text) }
func (r *recorder) BlockStart(name string)  { r.events = append(r.events, "block-start:"+name) }
func (r *recorder) BlockFinish(name string) { r.events = append(r.events, "block-finish:"+name) }

const sampleDefinition = `
version: 1
name: sample
description: test rules
rules:
  - id: err
    regex: '^ERR (?P<text>.+)$'
    action: error
    format: 'E: ${text}'
  - id: warn
    regex: '^WARN '
    action: warning
  - id: open
    regex: '^>> (?P<name>\S+)'
    action: block-start
    format: '${name}'
  - id: close
    regex: '^<< (?P<name>\S+)'
    action: block-finish
    format: '$name'
  - id: noise
    regex: '^DEBUG'
    action: ignore
  - id: info
    regex: '^INFO (.*)$'
    action: message
    format: '$1'
`

func TestRegexParserProcess(t *testing.T) {
	p, err := Decode("sample.yaml", []byte(sampleDefinition))
	require.NoError(t, err)
	assert.Equal(t, "sample", p.Name())
	assert.Equal(t, "test rules", p.Description())
	assert.Equal(t, "sample.yaml", p.Source())
	assert.Equal(t, 6, p.RuleCount())

	tests := []struct {
		line    string
		handled bool
		events  []string
	}{
		{"ERR disk full", true, []string{"error:E: disk full"}},
		{"WARN low memory", true, []string{"warning:WARN low memory"}},
		{">> compile now", true, []string{"block-start:compile"}},
		{"<< compile", true, []string{"block-finish:compile"}},
		{"DEBUG chatter", true, nil},
		{"INFO all good", true, []string{"message:all good"}},
		{"unrelated", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			rec := &recorder{}
			assert.Equal(t, tt.handled, p.Process(tt.line, rec))
			assert.Equal(t, tt.events, rec.events)
		})
	}
}

func TestRegexParserFirstRuleWins(t *testing.T) {
	p, err := Compile("inline", Definition{
		Version: 1,
		Rules: []RuleSpec{
			{ID: "a", Regex: "fail", Action: ActionError},
			{ID: "b", Regex: "fail", Action: ActionWarning},
		},
	})
	require.NoError(t, err)

	rec := &recorder{}
	require.True(t, p.Process("it will fail", rec))
	assert.Equal(t, []string{"error:it will fail"}, rec.events)

	id, ok := p.Match("it will fail")
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	_, ok = p.Match("passes")
	assert.False(t, ok)
}

func TestCompileDefaults(t *testing.T) {
	p, err := Compile("file.yaml", Definition{
		Version: 1,
		Rules:   []RuleSpec{{Regex: "x", Action: ActionMessage}},
	})
	require.NoError(t, err)
	assert.Equal(t, "file.yaml", p.Name(), "name falls back to source")

	id, ok := p.Match("x")
	require.True(t, ok)
	assert.Equal(t, "rule-1", id)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "version: [", "decode yaml"},
		{"unknown field", "version: 1\nbogus: true\nrules: []", "decode yaml"},
		{"wrong version", "version: 2\nrules:\n  - regex: x\n    action: error\n", "unsupported version 2"},
		{"no rules", "version: 1\nname: empty\n", "no rules defined"},
		{"unknown action", "version: 1\nrules:\n  - id: r\n    regex: x\n    action: explode\n", `unknown action "explode"`},
		{"empty regex", "version: 1\nrules:\n  - id: r\n    action: error\n", "empty regex"},
		{"bad regex", "version: 1\nrules:\n  - id: r\n    regex: '('\n    action: error\n", "missing closing )"},
		{"duplicate id", "version: 1\nrules:\n  - id: r\n    regex: x\n    action: error\n  - id: r\n    regex: y\n    action: error\n", "duplicate rule id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("broken.yaml", []byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, IsDefinitionError(err))
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "broken.yaml")
		})
	}
}

func TestIsDefinitionError(t *testing.T) {
	assert.False(t, IsDefinitionError(fmt.Errorf("plain")))
	wrapped := fmt.Errorf("load: %w", &DefinitionError{Source: "s", Reason: "r"})
	assert.True(t, IsDefinitionError(wrapped))
}
