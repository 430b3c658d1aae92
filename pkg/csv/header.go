package csv

import (
	"errors"
	"unicode/utf8"
)

// ErrInvalidUTF8 reports a header or field that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid utf-8")

// Header is the tokenized first line of a document.
type Header struct {
	Columns [][]byte
	index   map[string]int
}

// ParseHeader tokenizes a single header line. On duplicate names the first
// occurrence wins.
func ParseHeader(line []byte) *Header {
	cols, _ := ParseRecord(line, 0, make([][]byte, 0, 16))
	h := &Header{Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, ok := h.index[string(c)]; !ok {
			h.index[string(c)] = i
		}
	}
	return h
}

// ColumnIndex returns the position of the first column named exactly name.
func (h *Header) ColumnIndex(name string) (int, bool) {
	i, ok := h.index[name]
	return i, ok
}

// Len returns the number of header columns.
func (h *Header) Len() int { return len(h.Columns) }

// Names returns the column names as strings.
func (h *Header) Names() ([]string, error) {
	names := make([]string, len(h.Columns))
	for i, c := range h.Columns {
		if !utf8.Valid(c) {
			return nil, ErrInvalidUTF8
		}
		names[i] = string(c)
	}
	return names, nil
}
