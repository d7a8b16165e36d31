// Package protocol encodes console commands and replies as single lines of
// '|' separated fields. A literal '|', ',', '\' or line break inside a field
// is written with a backslash escape.
package protocol

import (
	"errors"
	"strings"
)

var ErrInvalidPacket = errors.New("invalid packet format")

// Command is one parsed input line.
type Command struct {
	Verb string
	Args []string
}

// Arg returns the i-th argument, or "" when it is missing.
func (c *Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

func ParseCommand(line string) (*Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return nil, ErrInvalidPacket
	}

	fields := splitUnescaped(line, '|')
	cmd := &Command{Verb: strings.ToLower(strings.TrimSpace(unescape(fields[0])))}
	if cmd.Verb == "" {
		return nil, ErrInvalidPacket
	}
	for _, f := range fields[1:] {
		cmd.Args = append(cmd.Args, unescape(f))
	}
	return cmd, nil
}

// FormatReply escapes every field and joins them into one line.
func FormatReply(verb string, fields ...string) string {
	var b strings.Builder
	b.WriteString(Escape(verb))
	for _, f := range fields {
		b.WriteByte('|')
		b.WriteString(Escape(f))
	}
	b.WriteByte('\n')
	return b.String()
}

// FormatList renders a list field: items joined by ',', each escaped.
func FormatList(items []string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		escaped[i] = Escape(item)
	}
	return strings.Join(escaped, ",")
}

// SplitList is the inverse of FormatList.
func SplitList(field string) []string {
	if field == "" {
		return nil
	}
	parts := splitUnescaped(field, ',')
	for i, p := range parts {
		parts[i] = unescape(p)
	}
	return parts
}

// splitUnescaped splits s on delimiter, leaving escape sequences in place
// for unescape. It works on bytes so that fields which are not valid UTF-8
// pass through unchanged.
func splitUnescaped(s string, delimiter byte) []string {
	var parts []string
	start := 0
	escaped := false

	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == delimiter:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

var unescaper = strings.NewReplacer(
	`\|`, "|",
	`\,`, ",",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "\r",
)

func unescape(s string) string {
	return unescaper.Replace(s)
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"|", `\|`,
	",", `\,`,
	"\n", `\n`,
	"\r", `\r`,
)

func Escape(s string) string {
	return escaper.Replace(s)
}
