package terminal

import (
	"sync"
	"time"
	"unicode/utf8"
)

// LineType tags where a buffered line came from.
type LineType string

const (
	LineInput  LineType = "input"
	LineOutput LineType = "output"
	LineError  LineType = "error"
)

// Line is one delimited line of terminal output.
type Line struct {
	Text      string     `json:"text"`
	Raw       string     `json:"raw"`
	Timestamp time.Time  `json:"timestamp"`
	Type      LineType   `json:"type"`
	Sequences []Sequence `json:"sequences,omitempty"`
}

// Cursor is the last known cursor position. It is derived from buffered
// output and is not authoritative terminal state.
type Cursor struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Snapshot is a point-in-time copy of a RingBuffer.
type Snapshot struct {
	Lines      []Line `json:"lines"`
	Scrollback int    `json:"scrollback"`
	MaxLines   int    `json:"max_lines"`
	Cursor     Cursor `json:"cursor"`
	Total      int    `json:"total"`
	// Partial is the raw, not yet terminated tail of the output (usually a prompt).
	Partial string `json:"partial,omitempty"`
}

// RingBuffer keeps the most recent maxLines lines of a session's output.
type RingBuffer struct {
	mu sync.Mutex

	maxLines int
	ring     []Line
	head     int // index of the oldest line in ring
	count    int

	scrollback int // lines evicted by the bound
	base       int // absolute index of the oldest buffered line
	total      int // lines ever committed

	pending     []byte
	pendingType LineType
	cursor      Cursor

	now func() time.Time
}

// NewRingBuffer creates a buffer holding at most maxLines lines.
func NewRingBuffer(maxLines int) *RingBuffer {
	return newRingBuffer(maxLines, time.Now)
}

func newRingBuffer(maxLines int, now func() time.Time) *RingBuffer {
	if maxLines <= 0 {
		maxLines = 1
	}
	return &RingBuffer{
		maxLines: maxLines,
		ring:     make([]Line, maxLines),
		now:      now,
	}
}

// Append splits chunk on \r\n, \n and \r and commits every non-empty line.
// A trailing fragment without terminator is held until the next chunk or Flush.
func (b *RingBuffer) Append(chunk []byte, typ LineType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) > 0 && b.pendingType != typ {
		b.commitPending()
	}

	start := 0
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]
		if c != '\n' && c != '\r' {
			continue
		}
		b.pending = append(b.pending, chunk[start:i]...)
		b.pendingType = typ
		b.commitPending()
		if c == '\r' && i+1 < len(chunk) && chunk[i+1] == '\n' {
			i++
		}
		start = i + 1
	}

	if start < len(chunk) {
		b.pending = append(b.pending, chunk[start:]...)
		b.pendingType = typ
	}
	b.cursor.Col = utf8.RuneCountInString(visible(string(b.pending)))
}

// AppendLine commits text as a single line, flushing any pending fragment first.
func (b *RingBuffer) AppendLine(text string, typ LineType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.commitPending()
	b.push(text, typ)
	b.cursor.Col = 0
}

// Flush commits the pending fragment, if any.
func (b *RingBuffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.commitPending()
	b.cursor.Col = 0
}

// Peek returns up to the last k lines without modifying the buffer.
func (b *RingBuffer) Peek(k int) []Line {
	b.mu.Lock()
	defer b.mu.Unlock()

	if k > b.count {
		k = b.count
	}
	if k <= 0 {
		return []Line{}
	}
	return b.linesFrom(b.count - k)
}

// Drain returns all buffered lines and empties the buffer. Scrollback is not
// affected since drained lines were delivered, not evicted.
func (b *RingBuffer) Drain() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.linesFrom(0)
	for i := range b.ring {
		b.ring[i] = Line{}
	}
	b.base += b.count
	b.head = 0
	b.count = 0
	return out
}

// Since returns the buffered lines at absolute index >= offset and the offset
// to pass on the next call. Lines evicted before they were read are skipped.
func (b *RingBuffer) Since(offset int) ([]Line, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.base + b.count
	if offset < b.base {
		offset = b.base
	}
	if offset >= next {
		return []Line{}, next
	}
	return b.linesFrom(offset - b.base), next
}

// Snapshot returns a copy of the buffer state.
func (b *RingBuffer) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		Lines:      b.linesFrom(0),
		Scrollback: b.scrollback,
		MaxLines:   b.maxLines,
		Cursor:     b.cursor,
		Total:      b.total,
		Partial:    string(b.pending),
	}
}

// Len returns the number of buffered lines.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Scrollback returns the number of lines evicted so far.
func (b *RingBuffer) Scrollback() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scrollback
}

func (b *RingBuffer) commitPending() {
	if len(b.pending) == 0 {
		return
	}
	raw := string(b.pending)
	b.pending = b.pending[:0]
	b.push(raw, b.pendingType)
}

func (b *RingBuffer) push(raw string, typ LineType) {
	if raw == "" {
		return
	}

	text, seqs := splitSequences(raw)
	line := Line{
		Text:      text,
		Raw:       raw,
		Timestamp: b.now(),
		Type:      typ,
		Sequences: seqs,
	}

	if b.count == b.maxLines {
		b.ring[b.head] = line
		b.head = (b.head + 1) % b.maxLines
		b.scrollback++
		b.base++
	} else {
		b.ring[(b.head+b.count)%b.maxLines] = line
		b.count++
	}
	b.total++
	b.cursor.Row = b.total
}

// linesFrom copies buffered lines starting at relative index i.
func (b *RingBuffer) linesFrom(i int) []Line {
	out := make([]Line, 0, b.count-i)
	for ; i < b.count; i++ {
		out = append(out, b.ring[(b.head+i)%b.maxLines])
	}
	return out
}

func visible(s string) string {
	text, _ := splitSequences(s)
	return text
}
