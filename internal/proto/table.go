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

// Table is a row set whose column types are carried out-of-band (learned
// from app metadata and cached by parameter id), so table rows on the wire
// hold no per-value type tags - only the schema-ordered scalar payloads.
type Table struct {
	Columns []TypeTag
	Rows    [][]any
}

// EncodeTable appends t's wire form to buf: an 8-byte row count followed by
// each row's columns in schema order. An empty table is exactly 8 zero bytes.
func EncodeTable(buf []byte, t Table) ([]byte, error) {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(t.Rows)))
	for ri, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("proto: table row %d has %d cells, schema wants %d", ri, len(row), len(t.Columns))
		}
		for ci, cell := range row {
			var err error
			buf, err = writeScalar(buf, t.Columns[ci], cell)
			if err != nil {
				return nil, fmt.Errorf("proto: table row %d col %d: %w", ri, ci, err)
			}
		}
	}
	return buf, nil
}

// DecodeTable reads a Table governed by the given column schema from b,
// returning the table and the number of bytes consumed.
func DecodeTable(b []byte, columns []TypeTag) (Table, int, error) {
	if len(b) < 8 {
		return Table{}, 0, fmt.Errorf("proto: short buffer decoding table row count")
	}
	rowCount := binary.LittleEndian.Uint64(b)
	off := 8
	t := Table{Columns: columns, Rows: make([][]any, 0, rowCount)}
	for r := uint64(0); r < rowCount; r++ {
		row := make([]any, len(columns))
		for c, tag := range columns {
			v, n, err := readScalar(b[off:], tag)
			if err != nil {
				return Table{}, 0, fmt.Errorf("proto: table row %d col %d: %w", r, c, err)
			}
			row[c] = v
			off += n
		}
		t.Rows = append(t.Rows, row)
	}
	return t, off, nil
}
