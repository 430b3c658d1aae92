package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/mmap"
)

// Zip reads feed files from a zip archive. Entries are matched by base name,
// so feeds nested in a folder inside the archive are found; when two entries
// share a base name the first one wins.
type Zip struct {
	kind   string
	files  map[string]*zip.File
	closer func() error
}

// NewZip reads an archive held in memory. kind labels the bytes-read metric.
func NewZip(data []byte, kind string) (*Zip, error) {
	return newZip(bytes.NewReader(data), int64(len(data)), kind)
}

// OpenZip reads the archive at path onto the heap.
func OpenZip(path string) (*Zip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read archive").WithDetail("path", path)
	}
	return NewZip(data, KindZip)
}

// OpenMappedZip memory-maps the archive at path. Stored (uncompressed)
// entries are still copied out of the mapping when read.
func OpenMappedZip(path string) (*Zip, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to map archive").WithDetail("path", path)
	}
	z, err := newZip(r, int64(r.Len()), KindZip)
	if err != nil {
		r.Close()
		return nil, err
	}
	z.closer = r.Close
	return z, nil
}

func newZip(r io.ReaderAt, size int64, kind string) (*Zip, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "not a valid zip archive")
	}
	z := &Zip{kind: kind, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		base := path.Base(f.Name)
		if _, dup := z.files[base]; !dup {
			z.files[base] = f
		}
	}
	return z, nil
}

// Kind implements Source.
func (z *Zip) Kind() string { return z.kind }

// Names returns the base names of all archive entries.
func (z *Zip) Names() []string {
	names := make([]string, 0, len(z.files))
	for n := range z.files {
		names = append(names, n)
	}
	return names
}

// ReadFile implements Source.
func (z *Zip) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return readWithSiblings(ctx, z.kind, name, z.fetch)
}

func (z *Zip) fetch(_ context.Context, name string) ([]byte, error) {
	f, ok := z.files[name]
	if !ok {
		return nil, notFound(z.kind, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to open archive entry "+f.Name)
	}
	defer rc.Close()

	buf := bytes.NewBuffer(make([]byte, 0, int(f.UncompressedSize64)))
	if _, err := io.Copy(buf, rc); err != nil { //nolint:gosec // G110: archive sizes are trusted
		return nil, errors.Wrap(err, errors.ErrorTypeFormat, "failed to inflate archive entry "+f.Name)
	}
	return buf.Bytes(), nil
}

// Close releases the mapping or remote client behind the archive, if any.
func (z *Zip) Close() error {
	if z.closer == nil {
		return nil
	}
	err := z.closer()
	z.closer = nil
	return err
}
