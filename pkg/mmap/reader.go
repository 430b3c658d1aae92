// Package mmap maps files read-only into memory so that parsers can take
// zero-copy views of their contents.
package mmap

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
)

// Reader is a read-only memory mapping of one file. The mapped bytes are
// valid until Close; slices obtained from Bytes must not be used afterwards.
type Reader struct {
	path      string
	file      *os.File
	data      []byte
	pageSize  int
	bytesRead atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// Open maps path into memory. An empty file yields a Reader with no data.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	r := &Reader{path: path, file: file, pageSize: os.Getpagesize()}
	if stat.Size() == 0 {
		return r, nil
	}

	data, err := mapFile(file, int(stat.Size()))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap %s: %w", path, err)
	}
	// Advice is a hint; failure is not an error.
	_ = madvise(data, madvSequential)
	r.data = data
	return r, nil
}

// Path returns the mapped file path.
func (r *Reader) Path() string { return r.path }

// Len returns the mapped size in bytes.
func (r *Reader) Len() int { return len(r.data) }

// Bytes returns the whole mapping and asks the kernel to prefetch it.
func (r *Reader) Bytes() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil
	}
	r.prefetch(0, len(r.data))
	r.bytesRead.Add(int64(len(r.data)))
	return r.data
}

// ReadAt implements io.ReaderAt over the mapping, which lets archive readers
// work directly on mapped files.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("mmap: negative offset %d", off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	r.bytesRead.Add(int64(n))
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// BytesRead returns how many bytes callers have obtained from the mapping.
func (r *Reader) BytesRead() int64 { return r.bytesRead.Load() }

func (r *Reader) prefetch(start, end int) {
	if end <= start {
		return
	}
	start = start / r.pageSize * r.pageSize
	_ = madvise(r.data[start:end], madvWillneed)
}

// Close unmaps the file and closes it. Calling Close twice is a no-op.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.data != nil {
		err = unmap(r.data)
		r.data = nil
	}
	if closeErr := r.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
