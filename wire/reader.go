package wire

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/paulscherrerinstitute/bsread-go/endian"
	"github.com/paulscherrerinstitute/bsread-go/errs"
	"github.com/paulscherrerinstitute/bsread-go/value"
)

// Decode decodes data as typ, producing a scalar if array is false or an
// array of count elements if array is true. data must already be exactly
// the bytes of the value part (the caller owns framing); typ, array and
// count must come from the channel's data-header metadata.
//
//nolint:gocyclo // dispatch table over the closed value.Type enum
func Decode(engine endian.EndianEngine, typ value.Type, array bool, count int, data []byte) (value.Value, error) {
	if count < 0 {
		return value.Value{}, fmt.Errorf("wire: negative count %d", count)
	}

	switch typ {
	case value.TypeString:
		if array {
			return value.Value{}, fmt.Errorf("wire: string has no array variant")
		}

		if !utf8.Valid(data) {
			return value.Value{}, errs.New(errs.InvalidData, "wire: string value is not valid UTF-8")
		}

		return value.NewString(string(data)), nil
	case value.TypeBool:
		return decodeBool(array, count, data)
	case value.TypeInt8:
		return decodeInt8(array, count, data)
	case value.TypeUint8:
		return decodeUint8(array, count, data)
	case value.TypeInt16:
		return decodeInt16(engine, array, count, data)
	case value.TypeUint16:
		return decodeUint16(engine, array, count, data)
	case value.TypeInt32:
		return decodeInt32(engine, array, count, data)
	case value.TypeUint32:
		return decodeUint32(engine, array, count, data)
	case value.TypeFloat32:
		return decodeFloat32(engine, array, count, data)
	case value.TypeInt64:
		return decodeInt64(engine, array, count, data)
	case value.TypeUint64:
		return decodeUint64(engine, array, count, data)
	case value.TypeFloat64:
		return decodeFloat64(engine, array, count, data)
	default:
		return value.Value{}, fmt.Errorf("wire: unsupported type %s", typ)
	}
}

func needLen(data []byte, want int) error {
	if len(data) < want {
		return fmt.Errorf("wire: short value part: need %d bytes, have %d", want, len(data))
	}

	return nil
}

func decodeBool(array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 1); err != nil {
			return value.Value{}, err
		}

		return value.NewBool(data[0] != 0), nil
	}

	if err := needLen(data, count); err != nil {
		return value.Value{}, err
	}

	out := make([]bool, count)
	for i := range out {
		out[i] = data[i] != 0
	}

	return value.NewBoolArray(out), nil
}

func decodeInt8(array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 1); err != nil {
			return value.Value{}, err
		}

		return value.NewInt8(int8(data[0])), nil
	}

	if err := needLen(data, count); err != nil {
		return value.Value{}, err
	}

	out := make([]int8, count)
	for i := range out {
		out[i] = int8(data[i])
	}

	return value.NewInt8Array(out), nil
}

func decodeUint8(array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 1); err != nil {
			return value.Value{}, err
		}

		return value.NewUint8(data[0]), nil
	}

	if err := needLen(data, count); err != nil {
		return value.Value{}, err
	}

	out := make([]uint8, count)
	copy(out, data[:count])

	return value.NewUint8Array(out), nil
}

func decodeInt16(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 2); err != nil {
			return value.Value{}, err
		}

		return value.NewInt16(int16(engine.Uint16(data))), nil
	}

	if err := needLen(data, count*2); err != nil {
		return value.Value{}, err
	}

	out := make([]int16, count)
	for i := range out {
		out[i] = int16(engine.Uint16(data[i*2 : i*2+2]))
	}

	return value.NewInt16Array(out), nil
}

func decodeUint16(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 2); err != nil {
			return value.Value{}, err
		}

		return value.NewUint16(engine.Uint16(data)), nil
	}

	if err := needLen(data, count*2); err != nil {
		return value.Value{}, err
	}

	out := make([]uint16, count)
	for i := range out {
		out[i] = engine.Uint16(data[i*2 : i*2+2])
	}

	return value.NewUint16Array(out), nil
}

func decodeInt32(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 4); err != nil {
			return value.Value{}, err
		}

		return value.NewInt32(int32(engine.Uint32(data))), nil
	}

	if err := needLen(data, count*4); err != nil {
		return value.Value{}, err
	}

	out := make([]int32, count)
	for i := range out {
		out[i] = int32(engine.Uint32(data[i*4 : i*4+4]))
	}

	return value.NewInt32Array(out), nil
}

func decodeUint32(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 4); err != nil {
			return value.Value{}, err
		}

		return value.NewUint32(engine.Uint32(data)), nil
	}

	if err := needLen(data, count*4); err != nil {
		return value.Value{}, err
	}

	out := make([]uint32, count)
	for i := range out {
		out[i] = engine.Uint32(data[i*4 : i*4+4])
	}

	return value.NewUint32Array(out), nil
}

func decodeFloat32(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 4); err != nil {
			return value.Value{}, err
		}

		return value.NewFloat32(math.Float32frombits(engine.Uint32(data))), nil
	}

	if err := needLen(data, count*4); err != nil {
		return value.Value{}, err
	}

	out := make([]float32, count)
	for i := range out {
		out[i] = math.Float32frombits(engine.Uint32(data[i*4 : i*4+4]))
	}

	return value.NewFloat32Array(out), nil
}

func decodeInt64(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 8); err != nil {
			return value.Value{}, err
		}

		return value.NewInt64(int64(engine.Uint64(data))), nil
	}

	if err := needLen(data, count*8); err != nil {
		return value.Value{}, err
	}

	out := make([]int64, count)
	for i := range out {
		out[i] = int64(engine.Uint64(data[i*8 : i*8+8]))
	}

	return value.NewInt64Array(out), nil
}

func decodeUint64(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 8); err != nil {
			return value.Value{}, err
		}

		return value.NewUint64(engine.Uint64(data)), nil
	}

	if err := needLen(data, count*8); err != nil {
		return value.Value{}, err
	}

	out := make([]uint64, count)
	for i := range out {
		out[i] = engine.Uint64(data[i*8 : i*8+8])
	}

	return value.NewUint64Array(out), nil
}

func decodeFloat64(engine endian.EndianEngine, array bool, count int, data []byte) (value.Value, error) {
	if !array {
		if err := needLen(data, 8); err != nil {
			return value.Value{}, err
		}

		return value.NewFloat64(math.Float64frombits(engine.Uint64(data))), nil
	}

	if err := needLen(data, count*8); err != nil {
		return value.Value{}, err
	}

	out := make([]float64, count)
	for i := range out {
		out[i] = math.Float64frombits(engine.Uint64(data[i*8 : i*8+8]))
	}

	return value.NewFloat64Array(out), nil
}
