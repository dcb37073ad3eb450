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
	"encoding/json"
	"fmt"
	"time"
)

// CoerceJSONParameter turns a single raw JSON value from an /api modify
// request body into a typed Value of the given tag (the modify handler takes
// the tag from the request body's "type" field, not from the app's
// metadata): JSON numbers widen to whatever signed/unsigned/float width the
// tag declares, JSON null only ever coerces against an Optional* field.
func CoerceJSONParameter(tag TypeTag, raw json.RawMessage) (Value, error) {
	if string(raw) == "null" {
		if !tag.IsOptional() {
			return Value{}, fmt.Errorf("proto: field of type %s cannot be set to null", tag)
		}
		return Value{Tag: tag, V: nilPointerFor(tag)}, nil
	}

	switch tag {
	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects a JSON bool: %w", tag, err)
		}
		return BoolValue(b), nil

	case TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeOptionalInt8, TypeOptionalInt16, TypeOptionalInt32, TypeOptionalInt64:
		var n int64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects a JSON integer: %w", tag, err)
		}
		return coerceSignedInt(tag, n)

	case TypeUint8, TypeUint16, TypeUint32, TypeUint64,
		TypeOptionalUint8, TypeOptionalUint16, TypeOptionalUint32, TypeOptionalUint64:
		var n uint64
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects a JSON non-negative integer: %w", tag, err)
		}
		return coerceUnsignedInt(tag, n)

	case TypeFloat, TypeDouble, TypeOptionalFloat, TypeOptionalDouble:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects a JSON number: %w", tag, err)
		}
		return coerceFloat(tag, f)

	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects a JSON string: %w", tag, err)
		}
		return StringValue(s), nil

	case TypeDuration:
		var ns int64
		if err := json.Unmarshal(raw, &ns); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects nanoseconds as a JSON integer: %w", tag, err)
		}
		return DurationValue(time.Duration(ns)), nil

	case TypeTimer:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			t, perr := time.Parse(time.RFC3339, s)
			if perr != nil {
				return Value{}, fmt.Errorf("proto: %s expects RFC3339: %w", tag, perr)
			}
			return TimerValue(t), nil
		}
		var epochNs int64
		if err := json.Unmarshal(raw, &epochNs); err != nil {
			return Value{}, fmt.Errorf("proto: %s expects an RFC3339 string or epoch-nanoseconds integer", tag)
		}
		return TimerValue(time.Unix(0, epochNs).UTC()), nil

	default:
		return Value{}, fmt.Errorf("proto: field type %s cannot be set via modify", tag)
	}
}

func coerceSignedInt(tag TypeTag, n int64) (Value, error) {
	switch tag {
	case TypeInt8:
		if n < -128 || n > 127 {
			return Value{}, fmt.Errorf("proto: %d overflows Int8", n)
		}
		return Int8Value(int8(n)), nil
	case TypeInt16:
		if n < -32768 || n > 32767 {
			return Value{}, fmt.Errorf("proto: %d overflows Int16", n)
		}
		return Int16Value(int16(n)), nil
	case TypeInt32:
		if n < -2147483648 || n > 2147483647 {
			return Value{}, fmt.Errorf("proto: %d overflows Int32", n)
		}
		return Int32Value(int32(n)), nil
	case TypeInt64:
		return Int64Value(n), nil
	case TypeOptionalInt8:
		if n < -128 || n > 127 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalInt8", n)
		}
		v := int8(n)
		return OptionalInt8Value(&v), nil
	case TypeOptionalInt16:
		if n < -32768 || n > 32767 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalInt16", n)
		}
		v := int16(n)
		return OptionalInt16Value(&v), nil
	case TypeOptionalInt32:
		if n < -2147483648 || n > 2147483647 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalInt32", n)
		}
		v := int32(n)
		return OptionalInt32Value(&v), nil
	case TypeOptionalInt64:
		return OptionalInt64Value(&n), nil
	default:
		return Value{}, fmt.Errorf("proto: %s is not a signed integer type", tag)
	}
}

func coerceUnsignedInt(tag TypeTag, n uint64) (Value, error) {
	switch tag {
	case TypeUint8:
		if n > 255 {
			return Value{}, fmt.Errorf("proto: %d overflows Uint8", n)
		}
		return Uint8Value(uint8(n)), nil
	case TypeUint16:
		if n > 65535 {
			return Value{}, fmt.Errorf("proto: %d overflows Uint16", n)
		}
		return Uint16Value(uint16(n)), nil
	case TypeUint32:
		if n > 4294967295 {
			return Value{}, fmt.Errorf("proto: %d overflows Uint32", n)
		}
		return Uint32Value(uint32(n)), nil
	case TypeUint64:
		return Uint64Value(n), nil
	case TypeOptionalUint8:
		if n > 255 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalUint8", n)
		}
		v := uint8(n)
		return OptionalUint8Value(&v), nil
	case TypeOptionalUint16:
		if n > 65535 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalUint16", n)
		}
		v := uint16(n)
		return OptionalUint16Value(&v), nil
	case TypeOptionalUint32:
		if n > 4294967295 {
			return Value{}, fmt.Errorf("proto: %d overflows OptionalUint32", n)
		}
		v := uint32(n)
		return OptionalUint32Value(&v), nil
	case TypeOptionalUint64:
		return OptionalUint64Value(&n), nil
	default:
		return Value{}, fmt.Errorf("proto: %s is not an unsigned integer type", tag)
	}
}

func coerceFloat(tag TypeTag, f float64) (Value, error) {
	switch tag {
	case TypeFloat:
		return FloatValue(float32(f)), nil
	case TypeDouble:
		return DoubleValue(f), nil
	case TypeOptionalFloat:
		v := float32(f)
		return OptionalFloatValue(&v), nil
	case TypeOptionalDouble:
		return OptionalDoubleValue(&f), nil
	default:
		return Value{}, fmt.Errorf("proto: %s is not a floating type", tag)
	}
}
