package inference

import (
	"bytes"
	"testing"
	"unicode/utf8"
)

func TestPushPassesThroughASCII(t *testing.T) {
	t.Parallel()
	var b Utf8StreamBuffer
	out := b.Push([]byte("hello"))
	if string(out) != "hello" {
		t.Fatalf("expected full ASCII passthrough, got %q", out)
	}
	if rest := b.Flush(); len(rest) != 0 {
		t.Fatalf("expected empty buffer after passthrough, got %q", rest)
	}
}

func TestPushHoldsSplitTwoByteChar(t *testing.T) {
	t.Parallel()
	var b Utf8StreamBuffer
	// "é" is 0xC3 0xA9; the lead byte arrives alone first.
	out := b.Push([]byte{'H', 0xC3})
	if string(out) != "H" {
		t.Fatalf("expected lead byte to be held, got %q", out)
	}
	out = b.Push([]byte{0xA9, '!'})
	if string(out) != "é!" {
		t.Fatalf("expected completed character, got %q", out)
	}
}

func TestPushHoldsSplitFourByteChar(t *testing.T) {
	t.Parallel()
	emoji := []byte("😀") // 4 bytes
	var b Utf8StreamBuffer

	if out := b.Push(emoji[:1]); len(out) != 0 {
		t.Fatalf("expected nothing emitted after lead byte, got %q", out)
	}
	if out := b.Push(emoji[1:3]); len(out) != 0 {
		t.Fatalf("expected nothing emitted mid-sequence, got %q", out)
	}
	out := b.Push(emoji[3:])
	if !bytes.Equal(out, emoji) {
		t.Fatalf("expected full emoji, got %q", out)
	}
}

func TestEveryPushEndsOnBoundary(t *testing.T) {
	t.Parallel()
	text := []byte("aé漢😀z")
	// Feed one byte at a time; every emitted chunk must be valid UTF-8
	// and the concatenation must reproduce the input.
	var b Utf8StreamBuffer
	var got []byte
	for i := range text {
		out := b.Push(text[i : i+1])
		if !utf8.Valid(out) {
			t.Fatalf("chunk %q is not valid UTF-8", out)
		}
		got = append(got, out...)
	}
	got = append(got, b.Flush()...)
	if !bytes.Equal(got, text) {
		t.Fatalf("expected %q, got %q", text, got)
	}
}

func TestFlushDropsDanglingLeadByte(t *testing.T) {
	t.Parallel()
	var b Utf8StreamBuffer
	if out := b.Push([]byte{'o', 'k', 0xE2}); string(out) != "ok" {
		t.Fatalf("expected 'ok', got %q", out)
	}
	if out := b.Flush(); len(out) != 0 {
		t.Fatalf("expected incomplete tail to be dropped, got %q", out)
	}
}

func TestFlushKeepsValidRemainder(t *testing.T) {
	t.Parallel()
	var b Utf8StreamBuffer
	b.Push([]byte{'a', 0xC3})
	b.Push([]byte{0xA9})
	// Nothing pending now; push a complete run then flush.
	b.Push([]byte("bc"))
	if out := b.Flush(); len(out) != 0 {
		t.Fatalf("expected empty flush, got %q", out)
	}
}
