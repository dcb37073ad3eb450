/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package apperrors gives every component boundary a small coded error type
// instead of bare fmt.Errorf, grouped by component so a log line's code alone
// identifies the failing subsystem.
package apperrors

import "fmt"

// Code identifies the failing component. Grouped in blocks of 1000 per
// component, grouped by numeric range for quick visual triage in logs.
type Code uint16

const (
	_ Code = iota

	// 1xxx: internal/wire
	CodeFrameTooLarge Code = 1001
	CodeFrameShort    Code = 1002
	CodeUnknownCipher Code = 1003

	// 2xxx: internal/transport
	CodeListenFailed   Code = 2001
	CodeAcceptFailed   Code = 2002
	CodeConnectFailed  Code = 2003
	CodeIPQuotaReached Code = 2004
	CodeServerStopped  Code = 2005

	// 3xxx: internal/proto
	CodeBadParameterType Code = 3001
	CodeBadTableColumns  Code = 3002

	// 4xxx: internal/engine
	CodeUnknownAppType     Code = 4001
	CodeNoInstance         Code = 4002
	CodeNotConnected       Code = 4003
	CodeConflictingAction  Code = 4004
	CodePortExhausted      Code = 4005
	CodeInvalidRequest     Code = 4006
	CodeManagerPaused      Code = 4007

	// 5xxx: internal/supervisor
	CodeSpawnFailed    Code = 5001
	CodeShellUnusable  Code = 5002

	// 6xxx: internal/manifest
	CodeManifestUnreadable Code = 6001
	CodeManifestEmpty      Code = 6002
	CodeManifestEntryBad   Code = 6003
)

// Coded wraps an error with a stable numeric code.
type Coded struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Coded) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Msg)
}

func (e *Coded) Unwrap() error { return e.Cause }

// New builds a Coded error with no wrapped cause.
func New(code Code, msg string) *Coded {
	return &Coded{Code: code, Msg: msg}
}

// Wrap builds a Coded error wrapping cause.
func Wrap(code Code, msg string, cause error) *Coded {
	return &Coded{Code: code, Msg: msg, Cause: cause}
}
