package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a position-tracked cursor over a byte slice, the way
// la2go's internal/gameserver/packet.Reader walks a decrypted frame.
// Every Read method returns ErrNotEnoughData instead of panicking when
// the slice is exhausted, so callers can treat a short buffer as "keep
// accumulating" rather than a hard failure.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps buf for sequential decoding starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{data: buf}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("wire: reading %d bytes at pos=%d len=%d: %w", n, r.pos, len(r.data), ErrNotEnoughData)
	}
	return nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	b, err := r.ReadU8()
	return int8(b), err
}

// ReadBool reads one byte, treating any non-zero value as true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadU8()
	return b != 0, err
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadF32LE reads a little-endian IEEE-754 float32.
func (r *Reader) ReadF32LE() (float32, error) {
	bits, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadBytes returns a copy of the next n bytes, or nil when n is 0.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadFixedString reads an n-byte NUL-padded ASCII buffer and trims
// everything from the first NUL onward.
func (r *Reader) ReadFixedString(n int) (string, error) {
	raw, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	if end := indexNUL(raw); end >= 0 {
		raw = raw[:end]
	}
	return string(raw), nil
}

// Skip advances the cursor by n bytes without returning them. Decode
// does not call it: padding between a variant's encoded size and its
// declared data_size is dropped by slicing the payload to data_size.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

func indexNUL(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
