package bitio

import (
	"encoding/binary"
	"testing"
)

func TestWriterReaderBitsRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0x5, 3, MSBFirst)  // 101
	w.WriteBits(0x2A, 7, LSBFirst) // arbitrary 7-bit value
	w.WriteBits(0, 6, MSBFirst)    // pad to the byte boundary WriteByte requires
	w.WriteByte(0xFF)

	r := NewReader(w.Bytes())
	if got := r.ReadBits(3, MSBFirst); got != 0x5 {
		t.Fatalf("ReadBits(3, MSBFirst) = %#x, want 0x5", got)
	}
	if got := r.ReadBits(7, LSBFirst); got != 0x2A {
		t.Fatalf("ReadBits(7, LSBFirst) = %#x, want 0x2a", got)
	}
	r.Skip(6)
	if got := r.ReadByte(); got != 0xFF {
		t.Fatalf("ReadByte() = %#x, want 0xff", got)
	}
}

func TestWriterReaderUint32RoundTrip(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		w := NewWriter()
		w.WriteUint32(0xDEADBEEF, order)

		r := NewReader(w.Bytes())
		if got := r.ReadUint32(order); got != 0xDEADBEEF {
			t.Fatalf("order=%v: ReadUint32() = %#x, want 0xdeadbeef", order, got)
		}
	}
}

func TestSkipUntilTerminator(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x00, 0x03})
	if !r.SkipUntilTerminator(0x00) {
		t.Fatal("SkipUntilTerminator(0x00) = false, want true")
	}
	if r.BytePosition() != 2 {
		t.Fatalf("BytePosition() = %d, want 2 (at the terminator, not past it)", r.BytePosition())
	}

	r2 := NewReader([]byte{0x01, 0x02})
	if r2.SkipUntilTerminator(0x00) {
		t.Fatal("SkipUntilTerminator(0x00) = true, want false (terminator absent)")
	}
}

func TestMarkResetMark(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	r.SetMark()
	r.Skip(16)
	r.ResetMark()
	if r.Position() != 0 {
		t.Fatalf("Position() after ResetMark() = %d, want 0", r.Position())
	}
}

func TestSkipBitsZeroFills(t *testing.T) {
	w := NewWriter()
	w.WriteByte(0xAB)
	w.SkipBits(16)
	w.WriteByte(0xCD)

	want := []byte{0xAB, 0x00, 0x00, 0xCD}
	got := w.Bytes()
	if len(got) != len(want) {
		t.Fatalf("Bytes() = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Bytes()[%d] = %#x, want %#x", i, got[i], want[i])
		}
	}
}
