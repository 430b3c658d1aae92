package columnar

import (
	"bufio"
	"io"

	"github.com/goccy/go-json"

	"github.com/ajitpratap0/velo/pkg/compression"
)

// DateLayout is how dates appear in JSON output.
const DateLayout = "2006-01-02"

type jsonWriter struct {
	buf  *bufio.Writer
	comp io.WriteCloser
	enc  *json.Encoder
}

// newJSONWriter writes one object per row. Null values are written as JSON
// null so every row carries the same keys.
func newJSONWriter(w io.Writer, opts Options) (*jsonWriter, error) {
	alg, err := compression.Parse(opts.Compression)
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewWriter(alg, w, compression.Default)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriterSize(comp, 256*1024)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &jsonWriter{buf: buf, comp: comp, enc: enc}, nil
}

func (jw *jsonWriter) writeBatch(vecs []*Vector, off, n int) error {
	row := make(map[string]any, len(vecs))
	for i := off; i < off+n; i++ {
		for _, v := range vecs {
			value := v.Value(i)
			if v.Kind == KindDate && value != nil {
				value = v.Date(i).Format(DateLayout)
			}
			row[v.Name] = value
		}
		if err := jw.enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func (jw *jsonWriter) close() error {
	if err := jw.buf.Flush(); err != nil {
		return err
	}
	return jw.comp.Close()
}
