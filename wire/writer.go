// Package wire implements the binary value codec used for the "value"
// part of a bsread channel frame (spec §4 "Wire Format", §3 "Value"):
// fixed-width little- or big-endian scalars and arrays, with bool always
// occupying exactly 1 byte regardless of value.Type.ElementWidth()'s
// logical 4-byte report for bool (spec §9 open question, preserved
// deliberately — see DESIGN.md).
//
// The wire codec never length-prefixes its output: a value part's length
// is carried by the surrounding ZeroMQ frame, not by the bytes themselves
// (spec §4 "each logical frame is a ZeroMQ multi-part message, so framing
// is free"). Readers must already know the channel's type, array-ness and
// element count from the data header before calling Decode.
package wire

import (
	"fmt"
	"math"

	"github.com/paulscherrerinstitute/bsread-go/endian"
	"github.com/paulscherrerinstitute/bsread-go/internal/pool"
	"github.com/paulscherrerinstitute/bsread-go/value"
)

// Writer encodes value.Value instances into their wire representation
// using a pooled buffer. A Writer is not safe for concurrent use; each
// goroutine encoding a message should own one.
type Writer struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
}

// NewWriter creates a Writer that encodes using the given endian engine
// (typically endian.GetLittleEndianEngine(), the bsread wire default).
func NewWriter(engine endian.EndianEngine) *Writer {
	return &Writer{
		engine: engine,
		buf:    pool.GetBlobBuffer(),
	}
}

// Release returns the Writer's internal buffer to the pool. The Writer
// must not be used after calling Release.
func (w *Writer) Release() {
	if w.buf != nil {
		pool.PutBlobBuffer(w.buf)
		w.buf = nil
	}
}

// Reset clears any previously encoded bytes so the Writer can be reused
// for the next channel's value part.
func (w *Writer) Reset() {
	w.buf.Reset()
}

// Bytes returns the bytes encoded since construction or the last Reset.
// The returned slice is valid until the next Write or Reset call.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Write encodes v and appends it to the Writer's internal buffer.
func (w *Writer) Write(v value.Value) error {
	return encodeInto(w.buf, w.engine, v)
}

// Encode is a one-shot helper that encodes v into a pooled scratch buffer
// and returns a freshly allocated copy of the result. Prefer Writer for
// encoding many values in a row (e.g. one per channel in a message).
func Encode(engine endian.EndianEngine, v value.Value) ([]byte, error) {
	buf := pool.GetBlobBuffer()
	defer pool.PutBlobBuffer(buf)

	if err := encodeInto(buf, engine, v); err != nil {
		return nil, err
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}

//nolint:gocyclo // dispatch table over the closed value.Type enum, mirrors the codec's own table-driven style
func encodeInto(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	switch v.Type() {
	case value.TypeString:
		s, _ := v.String()
		buf.MustWrite([]byte(s))

		return nil
	case value.TypeBool:
		return encodeBool(buf, v)
	case value.TypeInt8:
		return encodeInt8(buf, v)
	case value.TypeUint8:
		return encodeUint8(buf, v)
	case value.TypeInt16:
		return encodeInt16(buf, engine, v)
	case value.TypeUint16:
		return encodeUint16(buf, engine, v)
	case value.TypeInt32:
		return encodeInt32(buf, engine, v)
	case value.TypeUint32:
		return encodeUint32(buf, engine, v)
	case value.TypeFloat32:
		return encodeFloat32(buf, engine, v)
	case value.TypeInt64:
		return encodeInt64(buf, engine, v)
	case value.TypeUint64:
		return encodeUint64(buf, engine, v)
	case value.TypeFloat64:
		return encodeFloat64(buf, engine, v)
	default:
		return fmt.Errorf("wire: unsupported type %s", v.TypeName())
	}
}

func encodeBool(buf *pool.ByteBuffer, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.BoolArray()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr))

		for i, b := range arr {
			if b {
				buf.B[start+i] = 1
			} else {
				buf.B[start+i] = 0
			}
		}

		return nil
	}

	b, ok := v.Bool()
	if !ok {
		return fmt.Errorf("wire: value is not a bool")
	}

	if b {
		buf.MustWrite([]byte{1})
	} else {
		buf.MustWrite([]byte{0})
	}

	return nil
}

func encodeInt8(buf *pool.ByteBuffer, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Int8Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr))

		for i, n := range arr {
			buf.B[start+i] = byte(n)
		}

		return nil
	}

	n, ok := v.Int8()
	if !ok {
		return fmt.Errorf("wire: value is not an int8")
	}
	buf.MustWrite([]byte{byte(n)})

	return nil
}

func encodeUint8(buf *pool.ByteBuffer, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Uint8Array()
		buf.MustWrite(arr)

		return nil
	}

	n, ok := v.Uint8()
	if !ok {
		return fmt.Errorf("wire: value is not a uint8")
	}
	buf.MustWrite([]byte{n})

	return nil
}

func encodeInt16(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Int16Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 2)

		for i, n := range arr {
			off := start + i*2
			engine.PutUint16(buf.B[off:off+2], uint16(n))
		}

		return nil
	}

	n, ok := v.Int16()
	if !ok {
		return fmt.Errorf("wire: value is not an int16")
	}

	tmp := make([]byte, 2)
	engine.PutUint16(tmp, uint16(n))
	buf.MustWrite(tmp)

	return nil
}

func encodeUint16(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Uint16Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 2)

		for i, n := range arr {
			off := start + i*2
			engine.PutUint16(buf.B[off:off+2], n)
		}

		return nil
	}

	n, ok := v.Uint16()
	if !ok {
		return fmt.Errorf("wire: value is not a uint16")
	}

	tmp := make([]byte, 2)
	engine.PutUint16(tmp, n)
	buf.MustWrite(tmp)

	return nil
}

func encodeInt32(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Int32Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 4)

		for i, n := range arr {
			off := start + i*4
			engine.PutUint32(buf.B[off:off+4], uint32(n))
		}

		return nil
	}

	n, ok := v.Int32()
	if !ok {
		return fmt.Errorf("wire: value is not an int32")
	}

	tmp := make([]byte, 4)
	engine.PutUint32(tmp, uint32(n))
	buf.MustWrite(tmp)

	return nil
}

func encodeUint32(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Uint32Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 4)

		for i, n := range arr {
			off := start + i*4
			engine.PutUint32(buf.B[off:off+4], n)
		}

		return nil
	}

	n, ok := v.Uint32()
	if !ok {
		return fmt.Errorf("wire: value is not a uint32")
	}

	tmp := make([]byte, 4)
	engine.PutUint32(tmp, n)
	buf.MustWrite(tmp)

	return nil
}

func encodeFloat32(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Float32Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 4)

		for i, f := range arr {
			off := start + i*4
			engine.PutUint32(buf.B[off:off+4], math.Float32bits(f))
		}

		return nil
	}

	f, ok := v.Float32()
	if !ok {
		return fmt.Errorf("wire: value is not a float32")
	}

	tmp := make([]byte, 4)
	engine.PutUint32(tmp, math.Float32bits(f))
	buf.MustWrite(tmp)

	return nil
}

func encodeInt64(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Int64Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 8)

		for i, n := range arr {
			off := start + i*8
			engine.PutUint64(buf.B[off:off+8], uint64(n))
		}

		return nil
	}

	n, ok := v.Int64()
	if !ok {
		return fmt.Errorf("wire: value is not an int64")
	}

	tmp := make([]byte, 8)
	engine.PutUint64(tmp, uint64(n))
	buf.MustWrite(tmp)

	return nil
}

func encodeUint64(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Uint64Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 8)

		for i, n := range arr {
			off := start + i*8
			engine.PutUint64(buf.B[off:off+8], n)
		}

		return nil
	}

	n, ok := v.Uint64()
	if !ok {
		return fmt.Errorf("wire: value is not a uint64")
	}

	tmp := make([]byte, 8)
	engine.PutUint64(tmp, n)
	buf.MustWrite(tmp)

	return nil
}

func encodeFloat64(buf *pool.ByteBuffer, engine endian.EndianEngine, v value.Value) error {
	if v.IsArray() {
		arr, _ := v.Float64Array()
		start := buf.Len()
		buf.ExtendOrGrow(len(arr) * 8)

		for i, f := range arr {
			off := start + i*8
			engine.PutUint64(buf.B[off:off+8], math.Float64bits(f))
		}

		return nil
	}

	f, ok := v.Float64()
	if !ok {
		return fmt.Errorf("wire: value is not a float64")
	}

	tmp := make([]byte, 8)
	engine.PutUint64(tmp, math.Float64bits(f))
	buf.MustWrite(tmp)

	return nil
}
