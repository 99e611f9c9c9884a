package shabal

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestSum256Deterministic(t *testing.T) {
	msg := []byte("the quick brown fox jumps over the lazy dog")
	a := Sum256(msg)
	b := Sum256(append([]byte(nil), msg...))
	if a != b {
		t.Fatalf("Sum256 is not deterministic for identical input")
	}
}

func TestSum256DiffersOnInputChange(t *testing.T) {
	a := Sum256([]byte("a"))
	b := Sum256([]byte("b"))
	if a == b {
		t.Fatalf("Sum256 collided on trivially different input")
	}
}

func TestHashWriteMatchesSum256(t *testing.T) {
	msg := []byte("chunked writes must match a single Sum256 call")
	h := New()
	h.Write(msg[:10])
	h.Write(msg[10:])
	got := h.Sum(nil)
	want := Sum256(msg)
	if !bytes.Equal(got, want[:]) {
		t.Fatalf("Hash.Write/Sum disagree with Sum256")
	}
}

func TestScoopNumberDerivation(t *testing.T) {
	genSig := mustHex(t, "e924f6f257df0d60bdf3ee5d46e02231d90cb2cfb6f4187ee2b194448a25fdb0")
	var buf [40]byte
	copy(buf[:32], genSig)
	binary.BigEndian.PutUint64(buf[32:], 465699)

	digest := Sum256(buf[:])
	scoop := binary.BigEndian.Uint16(digest[30:32]) % 4096
	if scoop >= 4096 {
		t.Fatalf("scoop number %d out of range", scoop)
	}

	digest2 := Sum256(buf[:])
	scoop2 := binary.BigEndian.Uint16(digest2[30:32]) % 4096
	if scoop != scoop2 {
		t.Fatalf("scoop derivation is not idempotent: %d != %d", scoop, scoop2)
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b := make([]byte, len(s)/2)
	for i := range b {
		var hi, lo byte
		hi = hexNibble(t, s[i*2])
		lo = hexNibble(t, s[i*2+1])
		b[i] = hi<<4 | lo
	}
	return b
}

func hexNibble(t *testing.T, c byte) byte {
	t.Helper()
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	t.Fatalf("invalid hex digit %q", c)
	return 0
}
