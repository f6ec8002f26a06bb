package tui

import (
	"strings"
	"sync"

	"github.com/dshills/querystorm/internal/console"
)

// Editor is a minimal multi-line text buffer with a cursor. It implements
// console.Surface and console.Notifier: user edits are reported as
// ModeNormal changes and writes from the console are echoed with the mode
// they were made in.
type Editor struct {
	mu      sync.Mutex
	lines   [][]rune
	line    int
	col     int
	handler func(console.Change)
}

// NewEditor creates an editor holding text with the cursor at the start.
func NewEditor(text string) *Editor {
	e := &Editor{}
	e.lines = splitRunes(text)
	return e
}

func splitRunes(text string) [][]rune {
	parts := strings.Split(text, "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}
	return lines
}

// Value implements console.Surface.
func (e *Editor) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valueLocked()
}

func (e *Editor) valueLocked() string {
	parts := make([]string, len(e.lines))
	for i, l := range e.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

// SetValue implements console.Surface. The cursor is kept where it was,
// clamped to the new text.
func (e *Editor) SetValue(text string, mode console.Mode) {
	e.mu.Lock()
	e.lines = splitRunes(text)
	e.clampLocked()
	h := e.handler
	e.mu.Unlock()

	if h != nil {
		h(console.Change{Text: text, Mode: mode})
	}
}

// OnChange implements console.Notifier.
func (e *Editor) OnChange(fn func(console.Change)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = fn
}

// Cursor returns the 0-based line and rune column of the cursor.
func (e *Editor) Cursor() (line, col int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.line, e.col
}

// Lines returns a copy of the buffer lines.
func (e *Editor) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.lines))
	for i, l := range e.lines {
		out[i] = string(l)
	}
	return out
}

func (e *Editor) clampLocked() {
	if e.line >= len(e.lines) {
		e.line = len(e.lines) - 1
	}
	if e.line < 0 {
		e.line = 0
	}
	if n := len(e.lines[e.line]); e.col > n {
		e.col = n
	}
	if e.col < 0 {
		e.col = 0
	}
}

// edit applies fn under the lock and reports the result as a user change.
func (e *Editor) edit(fn func()) {
	e.mu.Lock()
	fn()
	e.clampLocked()
	text := e.valueLocked()
	h := e.handler
	e.mu.Unlock()

	if h != nil {
		h(console.Change{Text: text, Mode: console.ModeNormal})
	}
}

// InsertRune types r at the cursor.
func (e *Editor) InsertRune(r rune) {
	e.edit(func() {
		l := e.lines[e.line]
		nl := make([]rune, 0, len(l)+1)
		nl = append(nl, l[:e.col]...)
		nl = append(nl, r)
		nl = append(nl, l[e.col:]...)
		e.lines[e.line] = nl
		e.col++
	})
}

// Newline splits the line at the cursor.
func (e *Editor) Newline() {
	e.edit(func() {
		l := e.lines[e.line]
		head := append([]rune(nil), l[:e.col]...)
		tail := append([]rune(nil), l[e.col:]...)

		lines := make([][]rune, 0, len(e.lines)+1)
		lines = append(lines, e.lines[:e.line]...)
		lines = append(lines, head, tail)
		lines = append(lines, e.lines[e.line+1:]...)
		e.lines = lines
		e.line++
		e.col = 0
	})
}

// Backspace deletes the rune before the cursor, joining lines at column 0.
// Nothing is reported at the very start of the buffer.
func (e *Editor) Backspace() {
	e.mu.Lock()
	atStart := e.line == 0 && e.col == 0
	e.mu.Unlock()
	if atStart {
		return
	}

	e.edit(func() {
		if e.col > 0 {
			l := e.lines[e.line]
			e.lines[e.line] = append(l[:e.col-1:e.col-1], l[e.col:]...)
			e.col--
			return
		}
		prev := e.lines[e.line-1]
		e.col = len(prev)
		e.lines[e.line-1] = append(prev[:len(prev):len(prev)], e.lines[e.line]...)
		e.lines = append(e.lines[:e.line], e.lines[e.line+1:]...)
		e.line--
	})
}

// Delete removes the rune under the cursor, joining the next line at end
// of line. Nothing is reported at the very end of the buffer.
func (e *Editor) Delete() {
	e.mu.Lock()
	atEnd := e.line == len(e.lines)-1 && e.col == len(e.lines[e.line])
	e.mu.Unlock()
	if atEnd {
		return
	}

	e.edit(func() {
		l := e.lines[e.line]
		if e.col < len(l) {
			e.lines[e.line] = append(l[:e.col:e.col], l[e.col+1:]...)
			return
		}
		e.lines[e.line] = append(l[:len(l):len(l)], e.lines[e.line+1]...)
		e.lines = append(e.lines[:e.line+1], e.lines[e.line+2:]...)
	})
}

// Move moves the cursor by dx runes and dy lines. Horizontal movement wraps
// across line ends.
func (e *Editor) Move(dx, dy int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.line += dy
	e.clampLocked()

	e.col += dx
	switch {
	case e.col < 0 && e.line > 0:
		e.line--
		e.col = len(e.lines[e.line])
	case e.col > len(e.lines[e.line]) && e.line < len(e.lines)-1:
		e.line++
		e.col = 0
	}
	e.clampLocked()
}

// Home moves to the start of the line.
func (e *Editor) Home() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.col = 0
}

// End moves to the end of the line.
func (e *Editor) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.col = len(e.lines[e.line])
}
