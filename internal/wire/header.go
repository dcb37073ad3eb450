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

// Package wire implements the length-prefixed frame codec shared by every
// connection: an 8-byte header (cipher + declared length) in front of every
// binary frame, and a cipher-sniff that hands HTTP connections off to the
// standard library's request parser instead.
package wire

import "encoding/binary"

// Cipher is the leading 32-bit frame discriminator.
type Cipher uint32

const (
	// ObjectCipher marks a binary object/parameters protocol frame.
	ObjectCipher Cipher = 2_666_999_999

	// HeaderSize is the fixed 8-byte header: 4 bytes cipher + 4 bytes length.
	HeaderSize = 8
)

// DefaultInitialBufferSize and DefaultBufferSizeLimit mirror the server's
// default recvBufferSize=3, recvBufferSizeLimit=1024 configuration.
const (
	DefaultInitialBufferSize = 3
	DefaultBufferSizeLimit   = 1024
)

// Header is the parsed 8-byte frame prefix.
type Header struct {
	Cipher Cipher
	Length uint32 // total frame length including the 8-byte header
}

// ParseHeader decodes an 8-byte buffer into a Header.
func ParseHeader(b []byte) Header {
	return Header{
		Cipher: Cipher(binary.LittleEndian.Uint32(b[0:4])),
		Length: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// PutHeader encodes h into the first 8 bytes of b. b must be at least 8 bytes.
func PutHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(h.Cipher))
	binary.LittleEndian.PutUint32(b[4:8], h.Length)
}

// IsObject reports whether the cipher is the binary object/parameters protocol.
func (h Header) IsObject() bool { return h.Cipher == ObjectCipher }
