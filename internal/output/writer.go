// Package output writes translated build log events.
package output

import (
	"fmt"
	"io"
	"sync"

	"translator-agent/internal/parser"
	"translator-agent/internal/servicemsg"
)

// Format selects a Writer implementation.
type Format string

const (
	FormatTeamCity Format = "teamcity"
	FormatPlain    Format = "plain"
)

// Writer receives translator events plus untranslated lines.
type Writer interface {
	parser.Logger
	Raw(line string)
}

// New returns the writer for format, writing to w.
func New(format Format, w io.Writer) (Writer, error) {
	switch format {
	case FormatTeamCity, "":
		return NewTeamCityWriter(w), nil
	case FormatPlain:
		return NewPlainWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// TeamCityWriter renders events as service messages so the build server
// picks up severities and blocks.
type TeamCityWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTeamCityWriter(w io.Writer) *TeamCityWriter {
	return &TeamCityWriter{w: w}
}

func (t *TeamCityWriter) Message(text string) {
	t.emit(servicemsg.Message{Name: "message", Attributes: map[string]string{"text": text, "status": "NORMAL"}})
}

func (t *TeamCityWriter) Warning(text string) {
	t.emit(servicemsg.Message{Name: "message", Attributes: map[string]string{"text": text, "status": "WARNING"}})
}

func (t *TeamCityWriter) Error(text string) {
	t.emit(servicemsg.Message{Name: "message", Attributes: map[string]string{"text": text, "status": "ERROR"}})
}

func (t *TeamCityWriter) BlockStart(name string) {
	t.emit(servicemsg.Message{Name: "blockOpened", Attributes: map[string]string{"name": name}})
}

func (t *TeamCityWriter) BlockFinish(name string) {
	t.emit(servicemsg.Message{Name: "blockClosed", Attributes: map[string]string{"name": name}})
}

// Raw copies line through unchanged.
func (t *TeamCityWriter) Raw(line string) {
	t.write(line)
}

func (t *TeamCityWriter) emit(msg servicemsg.Message) {
	t.write(servicemsg.Format(msg))
}

func (t *TeamCityWriter) write(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, line)
}

// PlainWriter renders events as prefixed text.
type PlainWriter struct {
	mu    sync.Mutex
	w     io.Writer
	depth int
}

func NewPlainWriter(w io.Writer) *PlainWriter {
	return &PlainWriter{w: w}
}

func (p *PlainWriter) Message(text string) { p.line("", text) }
func (p *PlainWriter) Warning(text string) { p.line("WARNING: ", text) }
func (p *PlainWriter) Error(text string)   { p.line("ERROR: ", text) }

func (p *PlainWriter) BlockStart(name string) {
	p.line("> ", name)
	p.mu.Lock()
	p.depth++
	p.mu.Unlock()
}

func (p *PlainWriter) BlockFinish(name string) {
	p.mu.Lock()
	if p.depth > 0 {
		p.depth--
	}
	p.mu.Unlock()
	p.line("< ", name)
}

func (p *PlainWriter) Raw(line string) { p.line("", line) }

func (p *PlainWriter) line(prefix, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.depth; i++ {
		io.WriteString(p.w, "  ")
	}
	fmt.Fprintf(p.w, "%s%s\n", prefix, text)
}
