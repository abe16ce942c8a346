// Package value implements the tagged Value sum type carried by every
// bsread channel (spec §3 "Value"): a scalar or 1-D array of one of
// string, bool, signed/unsigned 8/16/32/64-bit integers, or 32/64-bit
// floats. No array-of-string variant is carried, per spec.
//
// Each variant knows its logical Type, element byte width, whether it is
// an array, and its element count — the properties channel.Config and the
// wire codec dispatch table need without runtime reflection (Design Notes
// §9 "closed table rather than runtime type reflection").
package value

import (
	"fmt"
	"reflect"
)

// Type is the logical scalar type carried by a Value, independent of
// whether the Value is a scalar or an array of that type.
type Type uint8

const (
	TypeString Type = iota + 1
	TypeBool
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat32
	TypeFloat64
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseType parses a logical type name such as "int32" or "float64" as
// found in a channel's data-header metadata.
func ParseType(s string) (Type, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	case "int8":
		return TypeInt8, nil
	case "int16":
		return TypeInt16, nil
	case "int32":
		return TypeInt32, nil
	case "int64":
		return TypeInt64, nil
	case "uint8":
		return TypeUint8, nil
	case "uint16":
		return TypeUint16, nil
	case "uint32":
		return TypeUint32, nil
	case "uint64":
		return TypeUint64, nil
	case "float32":
		return TypeFloat32, nil
	case "float64":
		return TypeFloat64, nil
	default:
		return 0, fmt.Errorf("value: unknown type %q", s)
	}
}

// ElementWidth returns the logical byte width of one element of t.
//
// Open question (spec §9): bool reports 4 bytes here — the width that
// channel.Config.PayloadBytes multiplies by — even though the wire codec
// (package wire) always writes exactly 1 byte per bool, and bitshuffle_lz4
// block sizing in package channel uses that 1-byte wire width. This mismatch is inherited from the source protocol and is
// intentionally preserved rather than "fixed"; see DESIGN.md.
func (t Type) ElementWidth() int {
	switch t {
	case TypeString:
		return 0 // variable length, not used for compression sizing
	case TypeBool:
		return 4
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// Value is a tagged scalar or 1-D array value. The zero Value is invalid;
// use one of the New* constructors.
type Value struct {
	typ   Type
	array bool
	raw   any
}

// Type returns the logical type of v.
func (v Value) Type() Type { return v.typ }

// TypeName returns the logical type name, e.g. "int32", "float64".
func (v Value) TypeName() string { return v.typ.String() }

// IsArray reports whether v holds an array (vs. a scalar).
func (v Value) IsArray() bool { return v.array }

// ElementWidth returns v.Type().ElementWidth().
func (v Value) ElementWidth() int { return v.typ.ElementWidth() }

// Len returns the number of elements: 1 for a scalar, len(slice) for an
// array, and len(string) for a string scalar (its UTF-8 byte length, not
// an "array length" — strings are never arrays per spec).
func (v Value) Len() int {
	if !v.array {
		if v.typ == TypeString {
			s, _ := v.raw.(string)
			return len(s)
		}

		return 1
	}

	return reflect.ValueOf(v.raw).Len()
}

// IsValid reports whether v was constructed through one of the New*
// constructors (the zero Value is not valid).
func (v Value) IsValid() bool { return v.typ != 0 }

// Equal reports whether v and other hold the same type, array-ness and
// element values. Used by round-trip tests (spec §8 property 1/2), not on
// any hot encode/decode path.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ || v.array != other.array {
		return false
	}

	return reflect.DeepEqual(v.raw, other.raw)
}

func newScalar[T any](t Type, v T) Value {
	return Value{typ: t, array: false, raw: v}
}

func newArray[T any](t Type, v []T) Value {
	return Value{typ: t, array: true, raw: v}
}

func scalarAs[T any](v Value, t Type) (T, bool) {
	var zero T
	if v.typ != t || v.array {
		return zero, false
	}
	got, ok := v.raw.(T)

	return got, ok
}

func arrayAs[T any](v Value, t Type) ([]T, bool) {
	if v.typ != t || !v.array {
		return nil, false
	}
	got, ok := v.raw.([]T)

	return got, ok
}

// NewString constructs a string scalar Value. There is no array-of-string
// variant (spec §3).
func NewString(v string) Value { return newScalar(TypeString, v) }

// NewBool constructs a bool scalar Value.
func NewBool(v bool) Value { return newScalar(TypeBool, v) }

// NewBoolArray constructs a bool array Value.
func NewBoolArray(v []bool) Value { return newArray(TypeBool, v) }

// NewInt8 constructs an int8 scalar Value.
func NewInt8(v int8) Value { return newScalar(TypeInt8, v) }

// NewInt8Array constructs an int8 array Value.
func NewInt8Array(v []int8) Value { return newArray(TypeInt8, v) }

// NewInt16 constructs an int16 scalar Value.
func NewInt16(v int16) Value { return newScalar(TypeInt16, v) }

// NewInt16Array constructs an int16 array Value.
func NewInt16Array(v []int16) Value { return newArray(TypeInt16, v) }

// NewInt32 constructs an int32 scalar Value.
func NewInt32(v int32) Value { return newScalar(TypeInt32, v) }

// NewInt32Array constructs an int32 array Value.
func NewInt32Array(v []int32) Value { return newArray(TypeInt32, v) }

// NewInt64 constructs an int64 scalar Value.
func NewInt64(v int64) Value { return newScalar(TypeInt64, v) }

// NewInt64Array constructs an int64 array Value.
func NewInt64Array(v []int64) Value { return newArray(TypeInt64, v) }

// NewUint8 constructs a uint8 scalar Value.
func NewUint8(v uint8) Value { return newScalar(TypeUint8, v) }

// NewUint8Array constructs a uint8 array Value.
func NewUint8Array(v []uint8) Value { return newArray(TypeUint8, v) }

// NewUint16 constructs a uint16 scalar Value.
func NewUint16(v uint16) Value { return newScalar(TypeUint16, v) }

// NewUint16Array constructs a uint16 array Value.
func NewUint16Array(v []uint16) Value { return newArray(TypeUint16, v) }

// NewUint32 constructs a uint32 scalar Value.
func NewUint32(v uint32) Value { return newScalar(TypeUint32, v) }

// NewUint32Array constructs a uint32 array Value.
func NewUint32Array(v []uint32) Value { return newArray(TypeUint32, v) }

// NewUint64 constructs a uint64 scalar Value.
func NewUint64(v uint64) Value { return newScalar(TypeUint64, v) }

// NewUint64Array constructs a uint64 array Value.
func NewUint64Array(v []uint64) Value { return newArray(TypeUint64, v) }

// NewFloat32 constructs a float32 scalar Value.
func NewFloat32(v float32) Value { return newScalar(TypeFloat32, v) }

// NewFloat32Array constructs a float32 array Value.
func NewFloat32Array(v []float32) Value { return newArray(TypeFloat32, v) }

// NewFloat64 constructs a float64 scalar Value.
func NewFloat64(v float64) Value { return newScalar(TypeFloat64, v) }

// NewFloat64Array constructs a float64 array Value.
func NewFloat64Array(v []float64) Value { return newArray(TypeFloat64, v) }

// String returns v's string scalar and true, or ("", false) if v is not a
// string scalar.
func (v Value) String() (string, bool) { return scalarAs[string](v, TypeString) }

// Bool returns v's bool scalar and true, or (false, false) otherwise.
func (v Value) Bool() (bool, bool) { return scalarAs[bool](v, TypeBool) }

// BoolArray returns v's bool array and true, or (nil, false) otherwise.
func (v Value) BoolArray() ([]bool, bool) { return arrayAs[bool](v, TypeBool) }

// Int8 returns v's int8 scalar and true, or (0, false) otherwise.
func (v Value) Int8() (int8, bool) { return scalarAs[int8](v, TypeInt8) }

// Int8Array returns v's int8 array and true, or (nil, false) otherwise.
func (v Value) Int8Array() ([]int8, bool) { return arrayAs[int8](v, TypeInt8) }

// Int16 returns v's int16 scalar and true, or (0, false) otherwise.
func (v Value) Int16() (int16, bool) { return scalarAs[int16](v, TypeInt16) }

// Int16Array returns v's int16 array and true, or (nil, false) otherwise.
func (v Value) Int16Array() ([]int16, bool) { return arrayAs[int16](v, TypeInt16) }

// Int32 returns v's int32 scalar and true, or (0, false) otherwise.
func (v Value) Int32() (int32, bool) { return scalarAs[int32](v, TypeInt32) }

// Int32Array returns v's int32 array and true, or (nil, false) otherwise.
func (v Value) Int32Array() ([]int32, bool) { return arrayAs[int32](v, TypeInt32) }

// Int64 returns v's int64 scalar and true, or (0, false) otherwise.
func (v Value) Int64() (int64, bool) { return scalarAs[int64](v, TypeInt64) }

// Int64Array returns v's int64 array and true, or (nil, false) otherwise.
func (v Value) Int64Array() ([]int64, bool) { return arrayAs[int64](v, TypeInt64) }

// Uint8 returns v's uint8 scalar and true, or (0, false) otherwise.
func (v Value) Uint8() (uint8, bool) { return scalarAs[uint8](v, TypeUint8) }

// Uint8Array returns v's uint8 array and true, or (nil, false) otherwise.
func (v Value) Uint8Array() ([]uint8, bool) { return arrayAs[uint8](v, TypeUint8) }

// Uint16 returns v's uint16 scalar and true, or (0, false) otherwise.
func (v Value) Uint16() (uint16, bool) { return scalarAs[uint16](v, TypeUint16) }

// Uint16Array returns v's uint16 array and true, or (nil, false) otherwise.
func (v Value) Uint16Array() ([]uint16, bool) { return arrayAs[uint16](v, TypeUint16) }

// Uint32 returns v's uint32 scalar and true, or (0, false) otherwise.
func (v Value) Uint32() (uint32, bool) { return scalarAs[uint32](v, TypeUint32) }

// Uint32Array returns v's uint32 array and true, or (nil, false) otherwise.
func (v Value) Uint32Array() ([]uint32, bool) { return arrayAs[uint32](v, TypeUint32) }

// Uint64 returns v's uint64 scalar and true, or (0, false) otherwise.
func (v Value) Uint64() (uint64, bool) { return scalarAs[uint64](v, TypeUint64) }

// Uint64Array returns v's uint64 array and true, or (nil, false) otherwise.
func (v Value) Uint64Array() ([]uint64, bool) { return arrayAs[uint64](v, TypeUint64) }

// Float32 returns v's float32 scalar and true, or (0, false) otherwise.
func (v Value) Float32() (float32, bool) { return scalarAs[float32](v, TypeFloat32) }

// Float32Array returns v's float32 array and true, or (nil, false) otherwise.
func (v Value) Float32Array() ([]float32, bool) { return arrayAs[float32](v, TypeFloat32) }

// Float64 returns v's float64 scalar and true, or (0, false) otherwise.
func (v Value) Float64() (float64, bool) { return scalarAs[float64](v, TypeFloat64) }

// Float64Array returns v's float64 array and true, or (nil, false) otherwise.
func (v Value) Float64Array() ([]float64, bool) { return arrayAs[float64](v, TypeFloat64) }
