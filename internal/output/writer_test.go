package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"translator-agent/internal/servicemsg"
)

func TestTeamCityWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTeamCityWriter(&buf)

	w.BlockStart("compile")
	w.Message("Compiling 12 sources")
	w.Warning("deprecated API")
	w.Error("Foo.java:[3,1] 'x' expected")
	w.BlockFinish("compile")
	w.Raw("plain line")

	assert.Equal(t, strings.Join([]string{
		"##teamcity[blockOpened name='compile']",
		"##teamcity[message status='NORMAL' text='Compiling 12 sources']",
		"##teamcity[message status='WARNING' text='deprecated API']",
		"##teamcity[message status='ERROR' text='Foo.java:|[3,1|] |'x|' expected']",
		"##teamcity[blockClosed name='compile']",
		"plain line",
		"",
	}, "\n"), buf.String())
}

func TestTeamCityWriter_OutputParsesBack(t *testing.T) {
	var buf bytes.Buffer
	NewTeamCityWriter(&buf).Error("line1\nline2 |pipe|")

	msg, err := servicemsg.Parse(buf.String())
	require.NoError(t, err)
	assert.Equal(t, "message", msg.Name)
	assert.Equal(t, "line1\nline2 |pipe|", msg.Attr("text"))
	assert.Equal(t, "ERROR", msg.Attr("status"))
}

func TestPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewPlainWriter(&buf)

	w.BlockStart("test")
	w.Message("running")
	w.Warning("slow")
	w.Error("failed")
	w.BlockFinish("test")
	w.BlockFinish("unbalanced")
	w.Raw("tail")

	assert.Equal(t, "> test\n  running\n  WARNING: slow\n  ERROR: failed\n< test\n< unbalanced\ntail\n", buf.String())
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	w, err := New("", &buf)
	require.NoError(t, err)
	assert.IsType(t, &TeamCityWriter{}, w)

	w, err = New(FormatPlain, &buf)
	require.NoError(t, err)
	assert.IsType(t, &PlainWriter{}, w)

	_, err = New("json", &buf)
	assert.Error(t, err)
}
