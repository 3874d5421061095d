package servicemsg

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Prefix and Suffix delimit a service message inside a log line.
const (
	Prefix = "##teamcity["
	Suffix = "]"
)

// ErrNotServiceMessage is returned for ordinary log lines.
var ErrNotServiceMessage = errors.New("not a service message")

// Message is a single service message: a name plus either one positional
// argument or a set of attributes.
type Message struct {
	Name       string
	Argument   string
	Attributes map[string]string
}

// Attr returns the attribute value, or "" when absent.
func (m Message) Attr(key string) string {
	if m.Attributes == nil {
		return ""
	}
	return m.Attributes[key]
}

// String renders the message in wire format.
func (m Message) String() string {
	return Format(m)
}

// SyntaxError reports a malformed service message body.
type SyntaxError struct {
	Line   string
	Offset int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed service message at offset %d: %s", e.Offset, e.Reason)
}

// Parse extracts a service message from a log line. Leading whitespace is
// ignored; anything after the closing bracket is not.
func Parse(line string) (Message, error) {
	text := strings.TrimLeft(line, " \t")
	text = strings.TrimRight(text, "\r\n")
	if !strings.HasPrefix(text, Prefix) || !strings.HasSuffix(text, Suffix) {
		return Message{}, ErrNotServiceMessage
	}
	body := text[len(Prefix) : len(text)-len(Suffix)]

	s := &scanner{src: body, line: line}
	s.skipSpaces()
	name := s.ident()
	if name == "" {
		return Message{}, s.fail("missing message name")
	}
	msg := Message{Name: name}

	s.skipSpaces()
	if s.done() {
		return msg, nil
	}

	if s.peek() == '\'' {
		arg, err := s.quoted()
		if err != nil {
			return Message{}, err
		}
		s.skipSpaces()
		if !s.done() {
			return Message{}, s.fail("unexpected text after argument")
		}
		msg.Argument = arg
		return msg, nil
	}

	msg.Attributes = make(map[string]string)
	for !s.done() {
		key := s.ident()
		if key == "" {
			return Message{}, s.fail("expected attribute name")
		}
		if s.done() || s.peek() != '=' {
			return Message{}, s.fail(fmt.Sprintf("expected '=' after attribute %q", key))
		}
		s.pos++
		value, err := s.quoted()
		if err != nil {
			return Message{}, err
		}
		msg.Attributes[key] = value
		s.skipSpaces()
	}
	return msg, nil
}

// Format renders a message, escaping values. Attributes are written in
// sorted key order so output is stable.
func Format(m Message) string {
	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(m.Name)
	if len(m.Attributes) == 0 {
		if m.Argument != "" {
			b.WriteString(" '")
			b.WriteString(Escape(m.Argument))
			b.WriteString("'")
		}
		b.WriteString(Suffix)
		return b.String()
	}

	keys := make([]string, 0, len(m.Attributes))
	for k := range m.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("='")
		b.WriteString(Escape(m.Attributes[k]))
		b.WriteString("'")
	}
	b.WriteString(Suffix)
	return b.String()
}

type scanner struct {
	src  string
	line string
	pos  int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte { return s.src[s.pos] }

func (s *scanner) skipSpaces() {
	for !s.done() && (s.peek() == ' ' || s.peek() == '\t') {
		s.pos++
	}
}

func (s *scanner) ident() string {
	start := s.pos
	for !s.done() {
		c := s.peek()
		if c == ' ' || c == '\t' || c == '=' || c == '\'' {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

// quoted reads a single-quoted, pipe-escaped value starting at the opening quote.
func (s *scanner) quoted() (string, error) {
	if s.done() || s.peek() != '\'' {
		return "", s.fail("expected opening quote")
	}
	s.pos++
	start := s.pos
	for !s.done() {
		switch s.peek() {
		case '|':
			s.pos += 2
		case '\'':
			raw := s.src[start:s.pos]
			s.pos++
			value, err := Unescape(raw)
			if err != nil {
				return "", &SyntaxError{Line: s.line, Offset: start, Reason: err.Error()}
			}
			return value, nil
		default:
			s.pos++
		}
	}
	return "", s.fail("unterminated quoted value")
}

func (s *scanner) fail(reason string) error {
	return &SyntaxError{Line: s.line, Offset: s.pos, Reason: reason}
}
