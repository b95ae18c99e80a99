package format

import "testing"

func TestWordRoundTrip(t *testing.T) {
	b := make([]byte, 16)
	PutU32(b, 4, 0xdeadbeef)
	if got := ReadU32(b, 4); got != 0xdeadbeef {
		t.Fatalf("ReadU32 = 0x%x", got)
	}
	if b[4] != 0xef || b[7] != 0xde {
		t.Fatalf("expected little-endian layout, got % x", b[4:8])
	}
	PutU64(b, 8, 0x0102030405060708)
	if got := ReadU64(b, 8); got != 0x0102030405060708 {
		t.Fatalf("ReadU64 = 0x%x", got)
	}
}
