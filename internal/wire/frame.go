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

package wire

import (
	"bufio"
	"errors"
	"io"
)

// ErrFrameDropped is returned by Next when a frame declared a length above the
// reader's ceiling; the frame's payload has already been drained from the
// stream so the connection can continue.
var ErrFrameDropped = errors.New("wire: frame length exceeds ceiling, dropped")

// ErrUnknownCipher names a header cipher that is not ObjectCipher. Next does
// not inspect the cipher and never returns it.
var ErrUnknownCipher = errors.New("wire: unknown cipher")

// FrameReader reads length-prefixed binary frames from a connection, growing
// a reusable buffer up to a configured ceiling and dropping oversized frames
// without losing framing sync. It also exposes the raw *bufio.Reader so a
// caller can fall through to http.ReadRequest when the sniffed cipher is not
// the binary object protocol — see Sniff.
type FrameReader struct {
	br      *bufio.Reader
	buf     []byte
	ceiling int
	onDrop  func(declaredLen uint32)
}

// NewFrameReader wraps r with the given initial buffer size and ceiling,
// defaulting to DefaultInitialBufferSize/DefaultBufferSizeLimit when either
// is zero.
func NewFrameReader(r io.Reader, initialSize, ceiling int) *FrameReader {
	if initialSize <= 0 {
		initialSize = DefaultInitialBufferSize
	}
	if ceiling <= 0 {
		ceiling = DefaultBufferSizeLimit
	}
	if initialSize < HeaderSize {
		initialSize = HeaderSize
	}
	return &FrameReader{
		br:      bufio.NewReaderSize(r, 4096),
		buf:     make([]byte, initialSize),
		ceiling: ceiling,
	}
}

// OnDrop registers a callback invoked whenever a frame is dropped for
// exceeding the ceiling, so callers can bump a metrics counter.
func (f *FrameReader) OnDrop(cb func(declaredLen uint32)) { f.onDrop = cb }

// Bufio exposes the underlying buffered reader so a caller can hand the
// connection off to http.ReadRequest after a non-object cipher sniff; no
// bytes peeked via Sniff are lost because bufio.Reader.Peek never consumes.
func (f *FrameReader) Bufio() *bufio.Reader { return f.br }

// Sniff peeks (without consuming) the 8-byte frame header so the caller can
// decide which protocol this connection speaks before Next() consumes
// anything. It blocks until 8 bytes are buffered and otherwise returns the
// underlying reader's error (io.EOF when the stream ends first).
func (f *FrameReader) Sniff() (Header, error) {
	b, err := f.br.Peek(HeaderSize)
	if err != nil {
		return Header{}, err
	}
	return ParseHeader(b), nil
}

// Next consumes and returns the next binary frame's full bytes (including the
// 8-byte header), or ErrFrameDropped if the declared length exceeded the
// ceiling (the frame was drained from the stream so framing stays in sync),
// or an I/O error from the underlying reader.
func (f *FrameReader) Next() ([]byte, error) {
	hb, err := f.br.Peek(HeaderSize)
	if err != nil {
		return nil, err
	}
	h := ParseHeader(hb)

	if int(h.Length) > f.ceiling {
		if _, err := f.br.Discard(HeaderSize); err != nil {
			return nil, err
		}
		toDrop := int64(h.Length) - HeaderSize
		if toDrop > 0 {
			if _, err := io.CopyN(io.Discard, f.br, toDrop); err != nil {
				return nil, err
			}
		}
		if f.onDrop != nil {
			f.onDrop(h.Length)
		}
		return nil, ErrFrameDropped
	}

	if int(h.Length) < HeaderSize {
		// Malformed declared length; treat like an oversized/invalid frame:
		// drain what we can identify as the header only and report drop.
		if _, err := f.br.Discard(HeaderSize); err != nil {
			return nil, err
		}
		if f.onDrop != nil {
			f.onDrop(h.Length)
		}
		return nil, ErrFrameDropped
	}

	if len(f.buf) < int(h.Length) {
		f.buf = make([]byte, h.Length)
	}

	frame := f.buf[:h.Length]
	if _, err := io.ReadFull(f.br, frame); err != nil {
		return nil, err
	}

	out := make([]byte, h.Length)
	copy(out, frame)
	return out, nil
}
