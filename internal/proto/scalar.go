/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package proto

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// writeScalar appends the wire encoding of a bare scalar (no type tag, no
// optional presence byte) to buf and returns the result. Optional and
// TableData handling lives one level up, since they wrap a scalar encoding
// or recurse into rows respectively.
func writeScalar(buf []byte, tag TypeTag, v any) ([]byte, error) {
	switch tag {
	case TypeBool:
		b, _ := v.(bool)
		n := byte(0)
		if b {
			n = 1
		}
		return append(buf, n), nil
	case TypeInt8, TypeOptionalInt8:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return append(buf, byte(int8(n))), nil
	case TypeUint8, TypeOptionalUint8:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return append(buf, byte(uint8(n))), nil
	case TypeInt16, TypeOptionalInt16:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint16(buf, uint16(int16(n))), nil
	case TypeUint16, TypeOptionalUint16:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint16(buf, uint16(n)), nil
	case TypeInt32, TypeOptionalInt32:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(n))), nil
	case TypeUint32, TypeOptionalUint32:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(buf, uint32(n)), nil
	case TypeInt64, TypeOptionalInt64:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint64(buf, uint64(n)), nil
	case TypeUint64, TypeOptionalUint64:
		n, err := asInt64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint64(buf, uint64(n)), nil
	case TypeFloat, TypeOptionalFloat:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(f))), nil
	case TypeDouble, TypeOptionalDouble:
		f, err := asFloat64(v)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(f)), nil
	case TypeString:
		s, _ := v.(string)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		return append(buf, s...), nil
	case TypeTimer:
		t, _ := v.(time.Time)
		return binary.LittleEndian.AppendUint64(buf, uint64(t.UnixNano())), nil
	case TypeDuration:
		d, _ := v.(time.Duration)
		return binary.LittleEndian.AppendUint64(buf, uint64(int64(d))), nil
	default:
		return nil, fmt.Errorf("proto: cannot encode scalar of type %s", tag)
	}
}

// readScalar consumes a bare scalar of the given tag from b, returning the
// decoded value and the number of bytes consumed.
func readScalar(b []byte, tag TypeTag) (any, int, error) {
	need := func(n int) error {
		if len(b) < n {
			return fmt.Errorf("proto: short buffer decoding %s: need %d, have %d", tag, n, len(b))
		}
		return nil
	}
	switch tag {
	case TypeBool:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return b[0] != 0, 1, nil
	case TypeInt8, TypeOptionalInt8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return int8(b[0]), 1, nil
	case TypeUint8, TypeOptionalUint8:
		if err := need(1); err != nil {
			return nil, 0, err
		}
		return uint8(b[0]), 1, nil
	case TypeInt16, TypeOptionalInt16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return int16(binary.LittleEndian.Uint16(b)), 2, nil
	case TypeUint16, TypeOptionalUint16:
		if err := need(2); err != nil {
			return nil, 0, err
		}
		return binary.LittleEndian.Uint16(b), 2, nil
	case TypeInt32, TypeOptionalInt32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return int32(binary.LittleEndian.Uint32(b)), 4, nil
	case TypeUint32, TypeOptionalUint32:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return binary.LittleEndian.Uint32(b), 4, nil
	case TypeInt64, TypeOptionalInt64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return int64(binary.LittleEndian.Uint64(b)), 8, nil
	case TypeUint64, TypeOptionalUint64:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return binary.LittleEndian.Uint64(b), 8, nil
	case TypeFloat, TypeOptionalFloat:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(b)), 4, nil
	case TypeDouble, TypeOptionalDouble:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), 8, nil
	case TypeString:
		if err := need(4); err != nil {
			return nil, 0, err
		}
		n := int(binary.LittleEndian.Uint32(b))
		if err := need(4 + n); err != nil {
			return nil, 0, err
		}
		return string(b[4 : 4+n]), 4 + n, nil
	case TypeTimer:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return time.Unix(0, int64(binary.LittleEndian.Uint64(b))).UTC(), 8, nil
	case TypeDuration:
		if err := need(8); err != nil {
			return nil, 0, err
		}
		return time.Duration(int64(binary.LittleEndian.Uint64(b))), 8, nil
	default:
		return nil, 0, fmt.Errorf("proto: cannot decode scalar of type %s", tag)
	}
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("proto: value %v (%T) is not an integer", v, v)
	}
}

func asFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("proto: value %v (%T) is not a floating type", v, v)
	}
}
