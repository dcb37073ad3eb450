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
)

// TableSchema resolves the column types of a table-valued parameter id, so a
// table's rows can be decoded without repeating per-cell type tags on the
// wire. The engine keeps one of these per installed app, built from its
// metadata JSON.
type TableSchema map[uint64][]TypeTag

// ParameterSet is an unordered collection of id -> Value pairs, the payload
// of Parameters and Modify messages; iteration and encoding order is not
// defined.
type ParameterSet map[uint64]Value

// EncodeParameters appends the wire form of ps to buf: an 8-byte count
// followed by, per entry, an 8-byte id, a 1-byte type tag, a 1-byte presence
// flag for Optional* tags, then the payload (nested table encoding for
// TypeTableData).
func EncodeParameters(buf []byte, ps ParameterSet) ([]byte, error) {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(ps)))
	for id, v := range ps {
		buf = binary.LittleEndian.AppendUint64(buf, id)
		buf = append(buf, byte(v.Tag))

		var err error
		buf, err = encodeValueBody(buf, v)
		if err != nil {
			return nil, fmt.Errorf("proto: parameter %d: %w", id, err)
		}
	}
	return buf, nil
}

func encodeValueBody(buf []byte, v Value) ([]byte, error) {
	if v.Tag == TypeTableData {
		t, err := v.Table()
		if err != nil {
			return nil, err
		}
		return EncodeTable(buf, t)
	}
	if v.Tag.IsOptional() {
		present, inner, err := optionalParts(v)
		if err != nil {
			return nil, err
		}
		if !present {
			return append(buf, 0), nil
		}
		buf = append(buf, 1)
		return writeScalar(buf, v.Tag, inner)
	}
	return writeScalar(buf, v.Tag, v.V)
}

// optionalParts dereferences the pointer held by an Optional* Value,
// reporting whether it was non-nil and, if so, the pointed-to scalar.
func optionalParts(v Value) (present bool, inner any, err error) {
	switch p := v.V.(type) {
	case *int8:
		return p != nil, derefOr(p), nil
	case *int16:
		return p != nil, derefOr(p), nil
	case *int32:
		return p != nil, derefOr(p), nil
	case *int64:
		return p != nil, derefOr(p), nil
	case *uint8:
		return p != nil, derefOr(p), nil
	case *uint16:
		return p != nil, derefOr(p), nil
	case *uint32:
		return p != nil, derefOr(p), nil
	case *uint64:
		return p != nil, derefOr(p), nil
	case *float32:
		return p != nil, derefOr(p), nil
	case *float64:
		return p != nil, derefOr(p), nil
	default:
		return false, nil, fmt.Errorf("proto: value tag %s is not backed by a pointer", v.Tag)
	}
}

func derefOr[T any](p *T) any {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// DecodeParameters parses a ParameterSet from b using schema to resolve the
// column types of any table-valued entries, returning the set and the number
// of bytes consumed.
func DecodeParameters(b []byte, schema TableSchema) (ParameterSet, int, error) {
	if len(b) < 8 {
		return nil, 0, fmt.Errorf("proto: short buffer decoding parameter count")
	}
	count := binary.LittleEndian.Uint64(b)
	off := 8
	ps := make(ParameterSet, count)

	for i := uint64(0); i < count; i++ {
		if len(b) < off+9 {
			return nil, 0, fmt.Errorf("proto: short buffer decoding parameter %d header", i)
		}
		id := binary.LittleEndian.Uint64(b[off:])
		off += 8
		tag := TypeTag(b[off])
		off++

		v, n, err := decodeValueBody(b[off:], tag, id, schema)
		if err != nil {
			return nil, 0, fmt.Errorf("proto: parameter id %d: %w", id, err)
		}
		off += n
		ps[id] = v
	}
	return ps, off, nil
}

func decodeValueBody(b []byte, tag TypeTag, id uint64, schema TableSchema) (Value, int, error) {
	if tag == TypeTableData {
		cols, ok := schema[id]
		if !ok {
			return Value{}, 0, fmt.Errorf("proto: no table schema known for parameter %d", id)
		}
		t, n, err := DecodeTable(b, cols)
		if err != nil {
			return Value{}, 0, err
		}
		return TableValue(t), n, nil
	}
	if tag.IsOptional() {
		if len(b) < 1 {
			return Value{}, 0, fmt.Errorf("proto: short buffer decoding optional presence flag")
		}
		if b[0] == 0 {
			return Value{Tag: tag, V: nilPointerFor(tag)}, 1, nil
		}
		inner, n, err := readScalar(b[1:], tag)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Tag: tag, V: pointerFor(tag, inner)}, 1 + n, nil
	}
	v, n, err := readScalar(b, tag)
	if err != nil {
		return Value{}, 0, err
	}
	return Value{Tag: tag, V: v}, n, nil
}

func nilPointerFor(tag TypeTag) any {
	switch tag {
	case TypeOptionalInt8:
		return (*int8)(nil)
	case TypeOptionalInt16:
		return (*int16)(nil)
	case TypeOptionalInt32:
		return (*int32)(nil)
	case TypeOptionalInt64:
		return (*int64)(nil)
	case TypeOptionalUint8:
		return (*uint8)(nil)
	case TypeOptionalUint16:
		return (*uint16)(nil)
	case TypeOptionalUint32:
		return (*uint32)(nil)
	case TypeOptionalUint64:
		return (*uint64)(nil)
	case TypeOptionalFloat:
		return (*float32)(nil)
	case TypeOptionalDouble:
		return (*float64)(nil)
	default:
		return nil
	}
}

func pointerFor(tag TypeTag, v any) any {
	switch tag {
	case TypeOptionalInt8:
		n := v.(int8)
		return &n
	case TypeOptionalInt16:
		n := v.(int16)
		return &n
	case TypeOptionalInt32:
		n := v.(int32)
		return &n
	case TypeOptionalInt64:
		n := v.(int64)
		return &n
	case TypeOptionalUint8:
		n := v.(uint8)
		return &n
	case TypeOptionalUint16:
		n := v.(uint16)
		return &n
	case TypeOptionalUint32:
		n := v.(uint32)
		return &n
	case TypeOptionalUint64:
		n := v.(uint64)
		return &n
	case TypeOptionalFloat:
		n := v.(float32)
		return &n
	case TypeOptionalDouble:
		n := v.(float64)
		return &n
	default:
		return nil
	}
}
