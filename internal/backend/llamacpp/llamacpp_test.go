package llamacpp

import (
	"bytes"
	"testing"
)

func TestTokenPiece(t *testing.T) {
	buf := make([]byte, 8)
	out := tokenPiece(&buf, func(b []byte) int {
		return copy(b, "hi")
	})
	if string(out) != "hi" {
		t.Errorf("piece = %q, want %q", out, "hi")
	}
}

func TestTokenPieceGrowsOnShortBuffer(t *testing.T) {
	piece := bytes.Repeat([]byte("x"), 300)
	buf := make([]byte, 8)
	calls := 0
	out := tokenPiece(&buf, func(b []byte) int {
		calls++
		if len(b) < len(piece) {
			return -len(piece)
		}
		return copy(b, piece)
	})
	if calls != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
	if !bytes.Equal(out, piece) {
		t.Errorf("piece length = %d, want %d", len(out), len(piece))
	}
	if len(buf) < len(piece) {
		t.Errorf("buffer not grown, len = %d", len(buf))
	}
}

func TestTokenPieceEmpty(t *testing.T) {
	buf := make([]byte, 8)
	if out := tokenPiece(&buf, func([]byte) int { return 0 }); out != nil {
		t.Errorf("expected nil for an empty piece, got %q", out)
	}
}
