package history

import "time"

// Origin identifies what produced a version.
type Origin string

const (
	// OriginUser marks content typed by the user.
	OriginUser Origin = "user"

	// OriginAI marks content produced by a committed AI modification.
	OriginAI Origin = "ai"
)

// String returns the origin name.
func (o Origin) String() string {
	return string(o)
}

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginUser || o == OriginAI
}

// DefaultDescription returns the description used when Save is called
// without one.
func (o Origin) DefaultDescription() string {
	if o == OriginAI {
		return "AI modification"
	}
	return "User edit"
}

// Entry is an immutable snapshot of console content.
type Entry struct {
	// ID uniquely identifies the entry (a UUID unless overridden).
	ID string `json:"id"`

	// Content is the full buffer text.
	Content string `json:"content"`

	// Origin is who produced the content.
	Origin Origin `json:"origin"`

	// Description is a short human-readable label.
	Description string `json:"description"`

	// Timestamp is when the entry was created.
	Timestamp time.Time `json:"timestamp"`

	// Sequence increases by one for every entry the manager creates.
	// It is not reused after entries are discarded.
	Sequence int `json:"sequence"`
}

// Info is a content-free view of an entry for history listings.
type Info struct {
	ID          string    `json:"id"`
	Origin      Origin    `json:"origin"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Sequence    int       `json:"sequence"`
	Bytes       int       `json:"bytes"`
	Current     bool      `json:"current"`
}

// Info returns the listing view of the entry.
func (e Entry) Info() Info {
	return Info{
		ID:          e.ID,
		Origin:      e.Origin,
		Description: e.Description,
		Timestamp:   e.Timestamp,
		Sequence:    e.Sequence,
		Bytes:       len(e.Content),
	}
}
