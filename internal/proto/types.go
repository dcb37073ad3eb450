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

// Package proto implements the standard parameter protocol: the typed
// parameter-set encoding and the action-frame vocabulary (hello,
// parameters-request, metadata-request, pause/run/delete/modify) that rides
// inside wire.ObjectCipher frames.
package proto

// TypeTag identifies the wire representation of a single parameter value.
type TypeTag byte

const (
	TypeBool TypeTag = iota + 1
	TypeInt8
	TypeInt16
	TypeInt32
	TypeInt64
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeFloat
	TypeDouble
	TypeString
	TypeTimer
	TypeDuration
	TypeTableData

	TypeOptionalInt8
	TypeOptionalInt16
	TypeOptionalInt32
	TypeOptionalInt64
	TypeOptionalUint8
	TypeOptionalUint16
	TypeOptionalUint32
	TypeOptionalUint64
	TypeOptionalFloat
	TypeOptionalDouble
)

// IsOptional reports whether t is one of the nullable numeric variants.
func (t TypeTag) IsOptional() bool {
	return t >= TypeOptionalInt8 && t <= TypeOptionalDouble
}

// String renders the metadata-visible name of the type tag, matching the
// strings used on the wire in app metadata JSON.
func (t TypeTag) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeUint8:
		return "Uint8"
	case TypeUint16:
		return "Uint16"
	case TypeUint32:
		return "Uint32"
	case TypeUint64:
		return "Uint64"
	case TypeFloat:
		return "Float"
	case TypeDouble:
		return "Double"
	case TypeString:
		return "String"
	case TypeTimer:
		return "Timer"
	case TypeDuration:
		return "Duration"
	case TypeTableData:
		return "TableData"
	case TypeOptionalInt8:
		return "OptionalInt8"
	case TypeOptionalInt16:
		return "OptionalInt16"
	case TypeOptionalInt32:
		return "OptionalInt32"
	case TypeOptionalInt64:
		return "OptionalInt64"
	case TypeOptionalUint8:
		return "OptionalUint8"
	case TypeOptionalUint16:
		return "OptionalUint16"
	case TypeOptionalUint32:
		return "OptionalUint32"
	case TypeOptionalUint64:
		return "OptionalUint64"
	case TypeOptionalFloat:
		return "OptionalFloat"
	case TypeOptionalDouble:
		return "OptionalDouble"
	default:
		return "Unknown"
	}
}

// TypeTagFromString reverses String, used to parse metadata JSON's per-field
// "type" string back into a TypeTag for Modify coercion and table column
// schema parsing.
func TypeTagFromString(s string) (TypeTag, bool) {
	for t := TypeBool; t <= TypeOptionalDouble; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// Reserved parameter ids every worker is expected to expose.
const (
	ParamWorkerListeningPort = 1000009
	ParamWorkerState         = 2000002
)

// WorkerState is the lifecycle state a worker reports via ParamWorkerState.
type WorkerState uint8

const (
	WorkerStateUndefined WorkerState = iota
	WorkerStatePaused
	WorkerStateRunning
)

// WorkerStateFromParameters extracts the worker's self-reported lifecycle
// state from a decoded parameters frame. The engine calls this on the
// parameters frame that follows a Pause/Run request instead of trusting an
// echoed action frame as the acknowledgement.
func WorkerStateFromParameters(ps ParameterSet) WorkerState {
	v, ok := ps[ParamWorkerState]
	if !ok {
		return WorkerStateUndefined
	}
	n, err := v.Int64()
	if err != nil {
		return WorkerStateUndefined
	}
	return WorkerState(n)
}
