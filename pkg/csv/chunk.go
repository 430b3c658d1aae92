package csv

// DefaultChunkSize is the target chunk length used when splitting a data
// region for parallel tokenization.
const DefaultChunkSize = 256 * 1024

// Range is a half-open byte range [Start, End) into a buffer.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int { return r.End - r.Start }

// SplitChunks divides buf[dataStart:] into record-aligned ranges of roughly
// approx bytes. Each range ends just past a newline or at len(buf), so every
// range can be tokenized on its own. An approx of zero yields one range per
// record.
func SplitChunks(buf []byte, dataStart, approx int) []Range {
	if dataStart >= len(buf) {
		return nil
	}
	if approx < 0 {
		approx = 0
	}
	var chunks []Range
	if approx > 0 {
		chunks = make([]Range, 0, (len(buf)-dataStart)/approx+1)
	}
	start := dataStart
	for start < len(buf) {
		candidate := min(start+approx, len(buf))
		end := NextRecordStart(buf, candidate)
		chunks = append(chunks, Range{Start: start, End: end})
		start = end
	}
	return chunks
}
