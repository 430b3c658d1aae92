// Package csv implements the lenient, zero-copy record tokenizer used by the
// table pipeline. Every field it yields is a sub-slice of the caller's buffer.
//
// The tokenizer never fails. Malformed quoting is resolved heuristically:
// a missing closing quote ends the field at the line break, and anything
// between a closing quote and the next delimiter is discarded. Doubled
// quotes inside a quoted field are kept verbatim rather than unescaped.
package csv

import "bytes"

const (
	comma = ','
	quote = '"'
	cr    = '\r'
	lf    = '\n'
)

// ParseRecord tokenizes the record that begins at buf[start] and appends its
// fields to fields. It returns the extended slice and the index of the first
// byte of the following record, or len(buf) when no record remains.
func ParseRecord(buf []byte, start int, fields [][]byte) ([][]byte, int) {
	i := start
	for i < len(buf) {
		switch buf[i] {
		case lf:
			return fields, i + 1
		case cr:
			i++
		case comma:
			fields = append(fields, buf[i:i])
			i++
			fields = trailingField(buf, i, fields)
		case quote:
			i++
			end := endOfQuoted(buf, i)
			fields = append(fields, buf[i:end])
			i = end
		garbage:
			for i < len(buf) {
				switch buf[i] {
				case comma:
					i++
					fields = trailingField(buf, i, fields)
					break garbage
				case cr, lf:
					break garbage
				default:
					i++
				}
			}
		default:
			end := endOfSimple(buf, i)
			fields = append(fields, buf[i:end])
			i = end
			if i < len(buf) && buf[i] == comma {
				i++
				fields = trailingField(buf, i, fields)
			}
		}
	}
	return fields, len(buf)
}

// trailingField appends the empty field implied by a comma that is directly
// followed by the end of the record.
func trailingField(buf []byte, i int, fields [][]byte) [][]byte {
	if i == len(buf) || buf[i] == lf || buf[i] == cr {
		fields = append(fields, buf[i:i])
	}
	return fields
}

func endOfSimple(buf []byte, i int) int {
	for ; i < len(buf); i++ {
		switch buf[i] {
		case comma, cr, lf:
			return i
		}
	}
	return i
}

// endOfQuoted returns the index of the closing quote, skipping doubled quotes.
// A line break before the closing quote ends the field.
func endOfQuoted(buf []byte, i int) int {
	for i < len(buf) {
		switch buf[i] {
		case quote:
			if i+1 < len(buf) && buf[i+1] == quote {
				i += 2
				continue
			}
			return i
		case cr, lf:
			return i
		}
		i++
	}
	return i
}

// NextRecordStart returns the index just past the first newline at or after
// from, or len(buf) if there is none.
func NextRecordStart(buf []byte, from int) int {
	if from >= len(buf) {
		return len(buf)
	}
	n := bytes.IndexByte(buf[from:], lf)
	if n < 0 {
		return len(buf)
	}
	return from + n + 1
}

// SplitHeaderAndData divides buf at its first newline. The header excludes the
// newline; data starts right after it.
func SplitHeaderAndData(buf []byte) (header, data []byte) {
	n := bytes.IndexByte(buf, lf)
	if n < 0 {
		return buf, buf[len(buf):]
	}
	return buf[:n], buf[n+1:]
}
