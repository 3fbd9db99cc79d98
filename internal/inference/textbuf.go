package inference

import "unicode/utf8"

// Utf8StreamBuffer accumulates raw bytes from token-to-text conversion
// and releases only chunks that end on a code point boundary. Token
// pieces routinely split multi-byte characters, so the incomplete tail
// is held back until its continuation bytes arrive.
type Utf8StreamBuffer struct {
	pending []byte
}

// Push appends p and returns everything up to (not including) a
// truncated multi-byte sequence at the end. The returned slice may be
// empty when the whole buffer is an incomplete character.
func (b *Utf8StreamBuffer) Push(p []byte) []byte {
	b.pending = append(b.pending, p...)
	keep := incompleteTailLen(b.pending)
	cut := len(b.pending) - keep
	if cut == 0 {
		return nil
	}
	out := b.pending[:cut:cut]
	rest := make([]byte, keep)
	copy(rest, b.pending[cut:])
	b.pending = rest
	return out
}

// Flush returns whatever is still held. Trailing bytes that can no
// longer form valid UTF-8 are dropped silently; no further bytes will
// arrive to complete them.
func (b *Utf8StreamBuffer) Flush() []byte {
	out := b.pending
	b.pending = nil
	for len(out) > 0 && !utf8.Valid(out) {
		out = out[:len(out)-1]
	}
	return out
}

// incompleteTailLen reports how many trailing bytes of p form the start
// of a multi-byte sequence whose continuation bytes have not arrived.
// Zero means p ends on a boundary (or ends with bytes that can never
// become valid, which are left for Flush to deal with).
func incompleteTailLen(p []byte) int {
	n := len(p)
	for i := 1; i <= utf8.UTFMax && i <= n; i++ {
		c := p[n-i]
		if c&0x80 == 0 {
			// ASCII; nothing before it can be a pending lead byte.
			return 0
		}
		if c&0xC0 == 0x80 {
			// Continuation byte, keep scanning for the lead.
			continue
		}
		var need int
		switch {
		case c&0xE0 == 0xC0:
			need = 2
		case c&0xF0 == 0xE0:
			need = 3
		case c&0xF8 == 0xF0:
			need = 4
		default:
			// Invalid lead byte; not completable.
			return 0
		}
		if need > i {
			return i
		}
		return 0
	}
	return 0
}
