package servicemsg

import (
	"fmt"
	"strconv"
	"strings"
)

var escaper = strings.NewReplacer(
	"|", "||",
	"'", "|'",
	"\n", "|n",
	"\r", "|r",
	"[", "|[",
	"]", "|]",
	"\u0085", "|x",
	"\u2028", "|l",
	"\u2029", "|p",
)

// Escape encodes a value for use inside a quoted service message field.
func Escape(value string) string {
	return escaper.Replace(value)
}

// Unescape decodes a quoted field body.
func Unescape(value string) (string, error) {
	if !strings.Contains(value, "|") {
		return value, nil
	}
	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '|' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(value) {
			return "", fmt.Errorf("dangling escape at end of value")
		}
		switch value[i] {
		case '|':
			b.WriteByte('|')
		case '\'':
			b.WriteByte('\'')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case '[':
			b.WriteByte('[')
		case ']':
			b.WriteByte(']')
		case 'x':
			b.WriteRune('\u0085')
		case 'l':
			b.WriteRune('\u2028')
		case 'p':
			b.WriteRune('\u2029')
		case '0':
			// |0xNNNN
			if i+6 > len(value) || value[i+1] != 'x' {
				return "", fmt.Errorf("invalid unicode escape at offset %d", i-1)
			}
			code, err := strconv.ParseUint(value[i+2:i+6], 16, 32)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape at offset %d: %w", i-1, err)
			}
			b.WriteRune(rune(code))
			i += 5
		default:
			return "", fmt.Errorf("unknown escape |%c at offset %d", value[i], i-1)
		}
	}
	return b.String(), nil
}
