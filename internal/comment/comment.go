package comment

import (
	"strings"
)

// Line is one formatted line of a documentation comment.
type Line struct {
	Text string `json:"text"`
}

// DocComment is a formatted documentation comment.
type DocComment []Line

// Empty reports whether the comment has no text.
func (c DocComment) Empty() bool {
	for _, l := range c {
		if strings.TrimSpace(l.Text) != "" {
			return false
		}
	}
	return true
}

// String joins the lines with newlines.
func (c DocComment) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// Format turns a raw comment (including its markers) into formatted lines.
// Comment markers, leading asterisks of block comments and the indentation
// common to every non-blank line are removed. Leading and trailing blank lines
// are dropped.
func Format(raw string) DocComment {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		lines = append(lines, stripMarkers(l))
	}
	lines = trimBlank(lines)
	lines = dedent(lines)

	out := make(DocComment, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{Text: strings.TrimRight(l, " \t")})
	}
	return out
}

func stripMarkers(line string) string {
	trimmed := strings.TrimLeft(line, " \t")

	for _, prefix := range []string{"///<", "//!<", "///", "//!", "//"} {
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimPrefix(trimmed, prefix)
		}
	}

	for _, prefix := range []string{"/**<", "/*!<", "/**", "/*!", "/*"} {
		if strings.HasPrefix(trimmed, prefix) {
			trimmed = strings.TrimPrefix(trimmed, prefix)
			break
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimRight(trimmed, " \t"), "*/")

	// Continuation lines of block comments conventionally start with "*".
	return strings.TrimPrefix(trimmed, "*")
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

func dedent(lines []string) []string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return lines
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= indent {
			out[i] = l[indent:]
		} else {
			out[i] = strings.TrimLeft(l, " \t")
		}
	}
	return out
}
