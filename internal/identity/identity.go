/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
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

// Package identity mints process-lifetime, operator-facing correlation tokens
// for log lines. These are distinct from the protocol-level integer
// connection ids: they exist purely so a human can grep one worker's whole
// lifetime out of the log stream.
package identity

import (
	uuid "github.com/hashicorp/go-uuid"
)

// Token is a short correlation id suitable for attaching to a logger via
// Logger.With("corr", token).
func Token() string {
	s, err := uuid.GenerateUUID()
	if err != nil {
		// GenerateUUID only fails if the system CSPRNG can't be read; fall
		// back to a fixed marker rather than panicking a log call site.
		return "uuid-unavailable"
	}
	return s
}
