package patch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors reported by Validate and Check.
var (
	// ErrUnknownKind indicates a modification kind that is not replace, append or insert.
	ErrUnknownKind = errors.New("unknown modification kind")

	// ErrLineOutOfRange indicates an insert position past the buffer's lines.
	ErrLineOutOfRange = errors.New("insert line out of range")

	// ErrInvalidPosition indicates a non-positive line.
	ErrInvalidPosition = errors.New("invalid insert position")
)

// Kind is the modification variant.
type Kind string

const (
	// KindReplace replaces the whole buffer.
	KindReplace Kind = "replace"

	// KindAppend appends after the buffer.
	KindAppend Kind = "append"

	// KindInsert inserts at a position or at the start.
	KindInsert Kind = "insert"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Position is a 1-indexed line and column.
// Column counts runes within the line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String returns "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Modification is a structured edit instruction.
// Position is only meaningful for KindInsert.
type Modification struct {
	Kind     Kind      `json:"type"`
	Content  string    `json:"content"`
	Position *Position `json:"position,omitempty"`
}

// Replace returns a modification that replaces the buffer with content.
func Replace(content string) Modification {
	return Modification{Kind: KindReplace, Content: content}
}

// Append returns a modification that appends content.
func Append(content string) Modification {
	return Modification{Kind: KindAppend, Content: content}
}

// Insert returns a modification that prepends content to the buffer.
func Insert(content string) Modification {
	return Modification{Kind: KindInsert, Content: content}
}

// InsertAt returns a modification that inserts content before the rune at
// the given 1-indexed line and column.
func InsertAt(content string, line, column int) Modification {
	return Modification{
		Kind:     KindInsert,
		Content:  content,
		Position: &Position{Line: line, Column: column},
	}
}

// Action returns the verb used in history descriptions ("AI append").
func (m Modification) Action() string {
	return string(m.Kind)
}

// Validate checks the modification is well formed, independent of any buffer.
func (m Modification) Validate() error {
	switch m.Kind {
	case KindReplace, KindAppend:
		return nil
	case KindInsert:
		if m.Position != nil && m.Position.Line < 1 {
			return fmt.Errorf("%w: line %d", ErrInvalidPosition, m.Position.Line)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, m.Kind)
	}
}

// String returns a short description for logs.
func (m Modification) String() string {
	if m.Kind == KindInsert && m.Position != nil {
		return fmt.Sprintf("insert@%s (%d bytes)", m.Position, len(m.Content))
	}
	return fmt.Sprintf("%s (%d bytes)", m.Kind, len(m.Content))
}

// UnmarshalJSON accepts the tagged form and tolerates "kind" in place of "type"
// and upper-case kind names.
func (m *Modification) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string    `json:"type"`
		Kind     string    `json:"kind"`
		Content  string    `json:"content"`
		Position *Position `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind := raw.Type
	if kind == "" {
		kind = raw.Kind
	}
	m.Kind = ParseKind(kind)
	m.Content = raw.Content
	m.Position = raw.Position
	return m.Validate()
}

// ParseKind normalises a kind name. Unknown names are returned as-is so that
// Validate can report them.
func ParseKind(s string) Kind {
	switch s {
	case "replace", "REPLACE", "Replace":
		return KindReplace
	case "append", "APPEND", "Append":
		return KindAppend
	case "insert", "INSERT", "Insert":
		return KindInsert
	default:
		return Kind(s)
	}
}
