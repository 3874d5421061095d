package parser

import (
	"regexp"
)

// Logger receives the events a translator produces for a build log.
type Logger interface {
	Message(text string)
	Warning(text string)
	Error(text string)
	BlockStart(name string)
	BlockFinish(name string)
}

type rule struct {
	id     string
	re     *regexp.Regexp
	action Action
	format string
}

// RegexParser is a compiled translator. It is immutable and safe for
// concurrent use.
type RegexParser struct {
	name        string
	description string
	source      string
	rules       []rule
}

// Name returns the definition name, or the source when the definition has none.
func (p *RegexParser) Name() string { return p.name }

// Description returns the optional human readable description.
func (p *RegexParser) Description() string { return p.description }

// Source returns where the parser was loaded from (resource path or file).
func (p *RegexParser) Source() string { return p.source }

// RuleCount returns the number of compiled rules.
func (p *RegexParser) RuleCount() int { return len(p.rules) }

// Process runs the line through the rules. The first matching rule reports
// to log and Process returns true; false means no rule matched.
func (p *RegexParser) Process(line string, log Logger) bool {
	for _, r := range p.rules {
		match := r.re.FindStringSubmatchIndex(line)
		if match == nil {
			continue
		}
		text := line
		if r.format != "" {
			text = string(r.re.ExpandString(nil, r.format, line, match))
		}

		switch r.action {
		case ActionMessage:
			log.Message(text)
		case ActionWarning:
			log.Warning(text)
		case ActionError:
			log.Error(text)
		case ActionBlockStart:
			log.BlockStart(text)
		case ActionBlockFinish:
			log.BlockFinish(text)
		case ActionIgnore:
		}
		return true
	}
	return false
}

// Match returns the id of the first rule matching line, for diagnostics.
func (p *RegexParser) Match(line string) (string, bool) {
	for _, r := range p.rules {
		if r.re.MatchString(line) {
			return r.id, true
		}
	}
	return "", false
}
