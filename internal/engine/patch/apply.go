package patch

import (
	"fmt"
	"strings"
)

// Apply returns the content that results from applying mod to current.
//
// An insert whose line is outside [1, lineCount] leaves current unchanged;
// use Check to detect that case.
func Apply(current string, mod Modification) string {
	switch mod.Kind {
	case KindReplace:
		return mod.Content
	case KindAppend:
		return appendContent(current, mod.Content)
	case KindInsert:
		if mod.Position == nil {
			return mod.Content + current
		}
		return insertAt(current, mod.Content, *mod.Position)
	default:
		return current
	}
}

// Check reports whether Apply would silently ignore mod against current.
func Check(current string, mod Modification) error {
	if err := mod.Validate(); err != nil {
		return err
	}
	if mod.Kind != KindInsert || mod.Position == nil {
		return nil
	}
	lines := LineCount(current)
	if mod.Position.Line > lines {
		return fmt.Errorf("%w: line %d of %d", ErrLineOutOfRange, mod.Position.Line, lines)
	}
	return nil
}

// LineCount returns the number of "\n"-separated lines in s.
// An empty string has one (empty) line.
func LineCount(s string) int {
	return strings.Count(s, "\n") + 1
}

func appendContent(current, content string) string {
	if strings.HasSuffix(current, "\n") {
		return current + content
	}
	return current + "\n" + content
}

func insertAt(current, content string, pos Position) string {
	lines := strings.Split(current, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return current
	}

	line := []rune(lines[pos.Line-1])
	col := pos.Column - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}

	var sb strings.Builder
	sb.Grow(len(lines[pos.Line-1]) + len(content))
	sb.WriteString(string(line[:col]))
	sb.WriteString(content)
	sb.WriteString(string(line[col:]))
	lines[pos.Line-1] = sb.String()

	return strings.Join(lines, "\n")
}
