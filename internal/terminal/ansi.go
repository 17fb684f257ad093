package terminal

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Sequence is a control or escape sequence lifted out of a raw line.
// Offset is the byte offset into Line.Raw where the sequence starts.
type Sequence struct {
	Offset int    `json:"offset"`
	Value  string `json:"value"`
}

// splitSequences returns the printable text of raw and the escape sequences
// it contains, in order of appearance. Both 7-bit (ESC-prefixed) and 8-bit
// C1 sequences are recognised. C0 controls such as tab stay in the text.
func splitSequences(raw string) (string, []Sequence) {
	var (
		text  strings.Builder
		seqs  []Sequence
		state byte
	)
	for i := 0; i < len(raw); {
		seq, width, n, next := ansi.DecodeSequence(raw[i:], state, nil)
		if n <= 0 {
			seq, n = raw[i:i+1], 1
		}
		state = next

		if width == 0 && isSequenceStart(seq[0]) {
			seqs = append(seqs, Sequence{Offset: i, Value: seq})
		} else {
			text.WriteString(seq)
		}
		i += n
	}
	if len(seqs) == 0 && utf8.ValidString(raw) {
		return raw, nil
	}
	return strings.ToValidUTF8(text.String(), ""), seqs
}

// isSequenceStart reports whether b opens an escape sequence or is a C1
// control.
func isSequenceStart(b byte) bool {
	return b == ansi.ESC || (b >= 0x80 && b <= 0x9f)
}
