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
	"fmt"
	"time"
)

// Value is a single typed parameter as carried over the wire: a tag plus the
// Go value it decodes to. Use the constructors below rather than building a
// Value by hand so the tag and the underlying type never drift apart.
type Value struct {
	Tag TypeTag
	V   any
}

func BoolValue(b bool) Value                     { return Value{TypeBool, b} }
func Int8Value(v int8) Value                     { return Value{TypeInt8, v} }
func Int16Value(v int16) Value                   { return Value{TypeInt16, v} }
func Int32Value(v int32) Value                   { return Value{TypeInt32, v} }
func Int64Value(v int64) Value                   { return Value{TypeInt64, v} }
func Uint8Value(v uint8) Value                   { return Value{TypeUint8, v} }
func Uint16Value(v uint16) Value                 { return Value{TypeUint16, v} }
func Uint32Value(v uint32) Value                 { return Value{TypeUint32, v} }
func Uint64Value(v uint64) Value                 { return Value{TypeUint64, v} }
func FloatValue(v float32) Value                 { return Value{TypeFloat, v} }
func DoubleValue(v float64) Value                { return Value{TypeDouble, v} }
func StringValue(v string) Value                 { return Value{TypeString, v} }
func TimerValue(v time.Time) Value                { return Value{TypeTimer, v} }
func DurationValue(v time.Duration) Value         { return Value{TypeDuration, v} }
func TableValue(v Table) Value                    { return Value{TypeTableData, v} }

// OptionalInt8Value etc. carry a nil *int8 for the SQL-NULL-like "absent"
// state; a non-nil pointer for a present value. Mirrors the ten numeric
// Optional* tags.
func OptionalInt8Value(v *int8) Value     { return Value{TypeOptionalInt8, v} }
func OptionalInt16Value(v *int16) Value   { return Value{TypeOptionalInt16, v} }
func OptionalInt32Value(v *int32) Value   { return Value{TypeOptionalInt32, v} }
func OptionalInt64Value(v *int64) Value   { return Value{TypeOptionalInt64, v} }
func OptionalUint8Value(v *uint8) Value   { return Value{TypeOptionalUint8, v} }
func OptionalUint16Value(v *uint16) Value { return Value{TypeOptionalUint16, v} }
func OptionalUint32Value(v *uint32) Value { return Value{TypeOptionalUint32, v} }
func OptionalUint64Value(v *uint64) Value { return Value{TypeOptionalUint64, v} }
func OptionalFloatValue(v *float32) Value { return Value{TypeOptionalFloat, v} }
func OptionalDoubleValue(v *float64) Value { return Value{TypeOptionalDouble, v} }

// Bool returns the underlying bool, or an error if Tag is not TypeBool.
func (v Value) Bool() (bool, error) {
	b, ok := v.V.(bool)
	if !ok || v.Tag != TypeBool {
		return false, fmt.Errorf("proto: value is %s, not Bool", v.Tag)
	}
	return b, nil
}

// Int64 widens any signed or unsigned integer scalar to int64, which is
// enough range for every coercion the Modify handler needs.
func (v Value) Int64() (int64, error) {
	switch n := v.V.(type) {
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
	}
	return 0, fmt.Errorf("proto: value tag %s is not an integer", v.Tag)
}

// Float64 widens Float/Double to float64.
func (v Value) Float64() (float64, error) {
	switch n := v.V.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("proto: value tag %s is not a floating type", v.Tag)
}

// String returns the underlying string, or an error if Tag is not TypeString.
func (v Value) String() (string, error) {
	s, ok := v.V.(string)
	if !ok || v.Tag != TypeString {
		return "", fmt.Errorf("proto: value is %s, not String", v.Tag)
	}
	return s, nil
}

// Table returns the underlying Table, or an error if Tag is not TypeTableData.
func (v Value) Table() (Table, error) {
	t, ok := v.V.(Table)
	if !ok || v.Tag != TypeTableData {
		return Table{}, fmt.Errorf("proto: value is %s, not TableData", v.Tag)
	}
	return t, nil
}
