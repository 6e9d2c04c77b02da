package wire

import (
	"encoding/binary"
	"math"
)

// Writer accumulates an encoded frame into a growable byte slice, the
// write-side counterpart to Reader, mirroring la2go's packet.Writer shape.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity hinted by sizeHint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len reports how many bytes have been written so far.
func (w *Writer) Len() int { return len(w.buf) }

// WriteU8 appends one byte.
func (w *Writer) WriteU8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteI8 appends one signed byte.
func (w *Writer) WriteI8(v int8) {
	w.WriteU8(uint8(v))
}

// WriteBool appends 1 or 0.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

// WriteU16LE appends a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteU32LE appends a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteF32LE appends a little-endian IEEE-754 float32.
func (w *Writer) WriteF32LE(v float32) {
	w.WriteU32LE(math.Float32bits(v))
}

// WriteBytes appends raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteFixedString writes s truncated to n bytes, NUL-padded to exactly
// n bytes if shorter.
func (w *Writer) WriteFixedString(s string, n int) {
	b := []byte(s)
	if len(b) > n {
		b = b[:n]
	}
	w.buf = append(w.buf, b...)
	for i := len(b); i < n; i++ {
		w.buf = append(w.buf, 0)
	}
}
