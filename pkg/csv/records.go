package csv

import (
	"bytes"
	"iter"
)

// Record is one tokenized row. Rows may be ragged: different records can
// carry different numbers of fields.
type Record struct {
	Fields [][]byte
}

// Len returns the number of fields in the record.
func (r Record) Len() int { return len(r.Fields) }

// Column returns field i, or false when the record is too short to have it.
func (r Record) Column(i int) ([]byte, bool) {
	if i < 0 || i >= len(r.Fields) {
		return nil, false
	}
	return r.Fields[i], true
}

// Records holds the tokenization of one chunk: a flat field array and an
// offsets array where record i spans fields[offsets[i]:offsets[i+1]].
type Records struct {
	offsets []int
	fields  [][]byte
}

// FromBuffer tokenizes every record in chunk. Fields alias chunk.
func FromBuffer(chunk []byte) *Records {
	lines := bytes.Count(chunk, []byte{lf}) + 1
	rs := &Records{
		offsets: make([]int, 1, lines+1),
		fields:  make([][]byte, 0, lines*4),
	}
	for i := 0; i < len(chunk); {
		rs.fields, i = ParseRecord(chunk, i, rs.fields)
		rs.offsets = append(rs.offsets, len(rs.fields))
	}
	return rs
}

// Len returns the record count.
func (rs *Records) Len() int { return len(rs.offsets) - 1 }

// FieldCount returns the total number of fields across all records.
func (rs *Records) FieldCount() int { return len(rs.fields) }

// Record returns record i. It panics if i is out of range.
func (rs *Records) Record(i int) Record {
	return Record{Fields: rs.fields[rs.offsets[i]:rs.offsets[i+1]:rs.offsets[i+1]]}
}

// All yields every record in order.
func (rs *Records) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i := range rs.Len() {
			if !yield(i, rs.Record(i)) {
				return
			}
		}
	}
}

// Fields returns the flat field array in record order.
func (rs *Records) Fields() [][]byte { return rs.fields }
