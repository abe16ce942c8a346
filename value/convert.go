package value

import "fmt"

// AsFloat64 coerces any scalar numeric Value to float64, for callers that
// want cross-type arithmetic over heterogeneous channels (e.g. a generic
// plotting sink). It returns an error for string, bool, or array values.
func (v Value) AsFloat64() (float64, error) {
	if v.array {
		return 0, fmt.Errorf("value: cannot coerce %s (array=%v) to float64", v.typ, v.array)
	}

	switch v.typ {
	case TypeInt8:
		n, _ := v.Int8()
		return float64(n), nil
	case TypeInt16:
		n, _ := v.Int16()
		return float64(n), nil
	case TypeInt32:
		n, _ := v.Int32()
		return float64(n), nil
	case TypeInt64:
		n, _ := v.Int64()
		return float64(n), nil
	case TypeUint8:
		n, _ := v.Uint8()
		return float64(n), nil
	case TypeUint16:
		n, _ := v.Uint16()
		return float64(n), nil
	case TypeUint32:
		n, _ := v.Uint32()
		return float64(n), nil
	case TypeUint64:
		n, _ := v.Uint64()
		return float64(n), nil
	case TypeFloat32:
		n, _ := v.Float32()
		return float64(n), nil
	case TypeFloat64:
		n, _ := v.Float64()
		return n, nil
	default:
		return 0, fmt.Errorf("value: cannot coerce %s (array=%v) to float64", v.typ, v.array)
	}
}

// AsInt64 coerces any scalar integer Value to int64. Float values are
// truncated towards zero. It returns an error for string, bool, or array
// values.
func (v Value) AsInt64() (int64, error) {
	if v.array {
		return 0, fmt.Errorf("value: cannot coerce %s (array=%v) to int64", v.typ, v.array)
	}

	switch v.typ {
	case TypeInt8:
		n, _ := v.Int8()
		return int64(n), nil
	case TypeInt16:
		n, _ := v.Int16()
		return int64(n), nil
	case TypeInt32:
		n, _ := v.Int32()
		return int64(n), nil
	case TypeInt64:
		n, _ := v.Int64()
		return n, nil
	case TypeUint8:
		n, _ := v.Uint8()
		return int64(n), nil
	case TypeUint16:
		n, _ := v.Uint16()
		return int64(n), nil
	case TypeUint32:
		n, _ := v.Uint32()
		return int64(n), nil
	case TypeUint64:
		n, _ := v.Uint64()
		return int64(n), nil
	case TypeFloat32:
		n, _ := v.Float32()
		return int64(n), nil
	case TypeFloat64:
		n, _ := v.Float64()
		return int64(n), nil
	default:
		return 0, fmt.Errorf("value: cannot coerce %s (array=%v) to int64", v.typ, v.array)
	}
}
