package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/mmap"
)

// Dir reads feed files from a local directory.
type Dir struct {
	root string
	mmap bool

	mu     sync.Mutex
	mapped []*mmap.Reader
	closed bool
}

// NewDir returns a source over root. With useMmap, plain .txt files are
// memory-mapped and stay mapped until Close; compressed siblings are always
// decompressed onto the heap.
func NewDir(root string, useMmap bool) *Dir {
	return &Dir{root: root, mmap: useMmap}
}

// Kind implements Source.
func (d *Dir) Kind() string {
	if d.mmap {
		return KindMmap
	}
	return KindDir
}

// ReadFile implements Source.
func (d *Dir) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return readWithSiblings(ctx, d.Kind(), name, d.fetch)
}

func (d *Dir) fetch(_ context.Context, name string) ([]byte, error) {
	path := filepath.Join(d.root, filepath.Base(name))
	if !d.mmap || filepath.Ext(name) != ".txt" {
		return d.read(path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, d.wrap(err, path)
	}
	r, err := mmap.Open(path)
	if err != nil {
		return nil, d.wrap(err, path)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		r.Close()
		return nil, errors.New(errors.ErrorTypeFile, "source is closed")
	}
	d.mapped = append(d.mapped, r)
	return r.Bytes(), nil
}

func (d *Dir) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, d.wrap(err, path)
	}
	return data, nil
}

func (d *Dir) wrap(err error, path string) error {
	if os.IsNotExist(err) {
		return notFound(d.Kind(), filepath.Base(path))
	}
	return errors.Wrap(err, errors.ErrorTypeFile, "failed to read "+path)
}

// Close unmaps every mapped file.
func (d *Dir) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true

	var errs []error
	for _, r := range d.mapped {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.mapped = nil
	return errors.Join(errs...)
}
