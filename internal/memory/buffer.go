package memory

// BufferEntry is one message in the short-term buffer.
type BufferEntry struct {
	Role    string // "user" | "assistant"
	Content string
}

// Buffer holds the in-session conversation for one user. Oldest
// entries are evicted once the limit is exceeded. Not safe for
// concurrent use; the engine serializes access per user.
type Buffer struct {
	limit   int
	entries []BufferEntry
}

// NewBuffer creates a buffer capped at limit entries
// (two entries per conversation pair)
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = 40
	}
	return &Buffer{limit: limit}
}

// AddPair appends a user/assistant exchange, evicting the oldest
// entries when over the limit
func (b *Buffer) AddPair(userMsg, assistantMsg string) {
	b.entries = append(b.entries,
		BufferEntry{Role: "user", Content: userMsg},
		BufferEntry{Role: "assistant", Content: assistantMsg},
	)
	if len(b.entries) > b.limit {
		b.entries = b.entries[len(b.entries)-b.limit:]
	}
}

// Recent returns the last n pairs in chronological order
func (b *Buffer) Recent(pairs int) []BufferEntry {
	count := pairs * 2
	if count >= len(b.entries) {
		return b.entries
	}
	return b.entries[len(b.entries)-count:]
}

// Len returns the number of buffered entries
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Clear drops all buffered entries
func (b *Buffer) Clear() {
	b.entries = nil
}
