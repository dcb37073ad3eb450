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

import "encoding/json"

// metadataField is one entry in an app's metadata document, under either its
// "mutable" or "const" field list: an id, its declared scalar type, and -
// for TableData fields only - the ordered column types of its rows.
type metadataField struct {
	ID      uint64   `json:"id"`
	Type    string   `json:"type"`
	Columns []string `json:"columns,omitempty"`
}

type metadataDocument struct {
	Mutable []metadataField `json:"mutable"`
	Const   []metadataField `json:"const"`
}

// ParseMetadataSchema extracts the table-column schema for every
// TableData-typed field declared in an app's metadata JSON, scanning both
// its mutable and const field lists, into the TableSchema the wire decoder
// consults when a parameters frame carries a TableData value.
func ParseMetadataSchema(metadataJSON string) (TableSchema, error) {
	var doc metadataDocument
	if err := json.Unmarshal([]byte(metadataJSON), &doc); err != nil {
		return nil, err
	}

	schema := make(TableSchema)
	for _, group := range [][]metadataField{doc.Mutable, doc.Const} {
		for _, f := range group {
			tag, ok := TypeTagFromString(f.Type)
			if !ok || tag != TypeTableData || len(f.Columns) == 0 {
				continue
			}
			cols := make([]TypeTag, 0, len(f.Columns))
			for _, cs := range f.Columns {
				ct, ok := TypeTagFromString(cs)
				if !ok {
					continue
				}
				cols = append(cols, ct)
			}
			schema[f.ID] = cols
		}
	}
	return schema, nil
}
