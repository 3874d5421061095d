package servicemsg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
	}{
		{
			name: "name only",
			line: "##teamcity[RegexMessageParser.Reset]",
			want: Message{Name: "RegexMessageParser.Reset"},
		},
		{
			name: "single argument",
			line: "##teamcity[RegexMessageParser.Enable 'parsers/custom.yaml']",
			want: Message{Name: "RegexMessageParser.Enable", Argument: "parsers/custom.yaml"},
		},
		{
			name: "attributes",
			line: "##teamcity[RegexMessageParser.Enable resource='presets/maven.yaml' scope='build']",
			want: Message{
				Name:       "RegexMessageParser.Enable",
				Attributes: map[string]string{"resource": "presets/maven.yaml", "scope": "build"},
			},
		},
		{
			name: "leading whitespace",
			line: "   ##teamcity[RegexMessageParser.Disable file='/abs/parser.yaml']",
			want: Message{
				Name:       "RegexMessageParser.Disable",
				Attributes: map[string]string{"file": "/abs/parser.yaml"},
			},
		},
		{
			name: "escaped value",
			line: "##teamcity[message text='it|'s |[done|]|n' status='NORMAL']",
			want: Message{
				Name:       "message",
				Attributes: map[string]string{"text": "it's [done]\n", "status": "NORMAL"},
			},
		},
		{
			name: "trailing carriage return",
			line: "##teamcity[RegexMessageParser.Reset scope='build']\r\n",
			want: Message{
				Name:       "RegexMessageParser.Reset",
				Attributes: map[string]string{"scope": "build"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_NotServiceMessage(t *testing.T) {
	for _, line := range []string{
		"",
		"[INFO] BUILD SUCCESS",
		"##teamcity[unterminated",
		"prefix ##teamcity[message text='x']",
	} {
		_, err := Parse(line)
		assert.True(t, errors.Is(err, ErrNotServiceMessage), "line %q", line)
	}
}

func TestParse_SyntaxErrors(t *testing.T) {
	for _, line := range []string{
		"##teamcity[]",
		"##teamcity[msg 'unterminated]",
		"##teamcity[msg 'arg' extra]",
		"##teamcity[msg key]",
		"##teamcity[msg key=value]",
		"##teamcity[msg key='bad |z escape']",
	} {
		t.Run(line, func(t *testing.T) {
			_, err := Parse(line)
			require.Error(t, err)
			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr), "expected SyntaxError, got %v", err)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	msg := Message{
		Name: "RegexMessageParser.Enable",
		Attributes: map[string]string{
			"file":  "conf/it's [odd].yaml",
			"scope": "next-runner",
		},
	}

	line := Format(msg)
	assert.Equal(t, "##teamcity[RegexMessageParser.Enable file='conf/it|'s |[odd|].yaml' scope='next-runner']", line)

	parsed, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, msg, parsed)
}

func TestFormat_Argument(t *testing.T) {
	assert.Equal(t, "##teamcity[RegexMessageParser.Reset]", Format(Message{Name: "RegexMessageParser.Reset"}))
	assert.Equal(t, "##teamcity[blockOpened 'a|nb']", Format(Message{Name: "blockOpened", Argument: "a\nb"}))
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a||b", "a|b"},
		{"|r|n", "\r\n"},
		{"|x|l|p", "\u0085\u2028\u2029"},
		{"|0x0041BC", "ABC"},
	}
	for _, tt := range tests {
		got, err := Unescape(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := Unescape("tail|")
	assert.Error(t, err)
	_, err = Unescape("|0x12")
	assert.Error(t, err)
}

func TestMessageAttr(t *testing.T) {
	var empty Message
	assert.Equal(t, "", empty.Attr("file"))

	msg := Message{Attributes: map[string]string{"file": "x"}}
	assert.Equal(t, "x", msg.Attr("file"))
}
