package bitio

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Reader provides sequential bit-level access to an encoded byte stream,
// tracking position in bits (mirrors glint's Reader.position byte cursor,
// generalized to sub-byte granularity).
type Reader struct {
	data   []byte
	bitPos uint64 // absolute position, in bits, from the start of data
	mark   uint64 // saved bit position, see SetMark/ResetMark
}

// NewReader wraps b for bit-level reading. The reader does not copy b.
func NewReader(b []byte) *Reader {
	return &Reader{data: b}
}

// Position returns the current cursor position in bits.
func (r *Reader) Position() uint64 { return r.bitPos }

// BytePosition returns the current cursor position in bytes, rounding
// down. Only meaningful when the cursor is byte-aligned.
func (r *Reader) BytePosition() uint64 { return r.bitPos / 8 }

// Aligned reports whether the cursor currently sits on a byte boundary.
func (r *Reader) Aligned() bool { return r.bitPos%8 == 0 }

// BitsLeft reports the number of unread bits remaining.
func (r *Reader) BitsLeft() uint64 {
	total := uint64(len(r.data)) * 8
	if r.bitPos >= total {
		return 0
	}
	return total - r.bitPos
}

// BytesLeft reports the number of whole unread bytes remaining.
func (r *Reader) BytesLeft() uint64 { return r.BitsLeft() / 8 }

// Array exposes the underlying byte buffer view (the §6 array() contract),
// used by the checksum subsystem to re-scan a byte span.
func (r *Reader) Array() []byte { return r.data }

// BitIndexToBytePosition converts an absolute bit index into a byte
// offset, for checksum-span accounting.
func (r *Reader) BitIndexToBytePosition(bitIndex uint64) uint64 { return bitIndex / 8 }

// SetMark saves the current position.
func (r *Reader) SetMark() { r.mark = r.bitPos }

// Mark returns the saved position.
func (r *Reader) Mark() uint64 { return r.mark }

// ResetMark restores the cursor to the saved position.
func (r *Reader) ResetMark() { r.bitPos = r.mark }

// Skip advances the cursor by n bits without reading.
func (r *Reader) Skip(n uint64) {
	if r.bitPos+n > uint64(len(r.data))*8 {
		panic(fmt.Sprintf("bitio: skip out of bounds: pos=%d n=%d len=%d bits", r.bitPos, n, len(r.data)*8))
	}
	r.bitPos += n
}

// SkipUntilTerminator scans forward, byte by byte, until it finds term,
// leaving the cursor positioned AT the terminator byte (not past it).
// The cursor must be byte-aligned on entry.
func (r *Reader) SkipUntilTerminator(term byte) bool {
	if !r.Aligned() {
		panic("bitio: SkipUntilTerminator requires a byte-aligned cursor")
	}
	for i := r.BytePosition(); i < uint64(len(r.data)); i++ {
		if r.data[i] == term {
			r.bitPos = i * 8
			return true
		}
	}
	r.bitPos = uint64(len(r.data)) * 8
	return false
}

// ReadBits reads n (<=64) bits honoring order and returns them right
// aligned in a uint64.
func (r *Reader) ReadBits(n uint, order BitOrder) uint64 {
	if n == 0 {
		return 0
	}
	if n > 64 {
		panic("bitio: ReadBits supports at most 64 bits at a time")
	}
	if r.bitPos+uint64(n) > uint64(len(r.data))*8 {
		panic(fmt.Sprintf("bitio: read out of bounds: pos=%d n=%d len=%d bits", r.bitPos, n, len(r.data)*8))
	}

	var v uint64
	for i := uint(0); i < n; i++ {
		byteIdx := r.bitPos / 8
		bitIdx := 7 - (r.bitPos % 8) // bit 7 = MSB of the byte
		bit := (r.data[byteIdx] >> bitIdx) & 1

		switch order {
		case LSBFirst:
			v |= uint64(bit) << i
		default: // MSBFirst
			v = (v << 1) | uint64(bit)
		}

		r.bitPos++
	}
	return v
}

// ReadByte reads the next 8 bits as a byte, MSB first. Unlike ReadBytes,
// it does not require a byte-aligned cursor.
func (r *Reader) ReadByte() byte {
	return byte(r.ReadBits(8, MSBFirst))
}

// ReadBytes reads n whole bytes. The cursor must be byte-aligned.
func (r *Reader) ReadBytes(n uint64) []byte {
	if !r.Aligned() {
		panic("bitio: ReadBytes requires a byte-aligned cursor")
	}
	start := r.BytePosition()
	end := start + n
	if end > uint64(len(r.data)) {
		panic(fmt.Sprintf("bitio: read out of bounds: start=%d n=%d len=%d", start, n, len(r.data)))
	}
	r.bitPos = end * 8
	return r.data[start:end]
}

// ReadUint16 reads a byte-aligned uint16 using the given byte order.
func (r *Reader) ReadUint16(order binary.ByteOrder) uint16 { return order.Uint16(r.ReadBytes(2)) }

// ReadUint32 reads a byte-aligned uint32 using the given byte order.
func (r *Reader) ReadUint32(order binary.ByteOrder) uint32 { return order.Uint32(r.ReadBytes(4)) }

// ReadUint64 reads a byte-aligned uint64 using the given byte order.
func (r *Reader) ReadUint64(order binary.ByteOrder) uint64 { return order.Uint64(r.ReadBytes(8)) }

// ReadBigInt reads nBits worth of whole bytes (nBits must be a multiple of
// 8) as an arbitrary-precision unsigned integer in the given byte order.
func (r *Reader) ReadBigInt(nBits uint, order binary.ByteOrder) *big.Int {
	if nBits%8 != 0 {
		panic("bitio: ReadBigInt requires a byte-multiple bit width")
	}
	b := r.ReadBytes(uint64(nBits / 8))
	if order == binary.LittleEndian {
		rev := make([]byte, len(b))
		for i := range b {
			rev[len(b)-1-i] = b[i]
		}
		b = rev
	}
	return new(big.Int).SetBytes(b)
}

// Unread moves the cursor backward by n bits.
func (r *Reader) Unread(n uint64) { r.bitPos -= n }
