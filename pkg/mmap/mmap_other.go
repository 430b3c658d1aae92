//go:build !linux && !darwin

package mmap

import (
	"io"
	"os"
)

// mapFile reads the whole file on platforms without mmap support.
func mapFile(f *os.File, size int) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func unmap([]byte) error { return nil }

func madvise([]byte, int) error { return nil }

const (
	madvSequential = 0
	madvWillneed   = 0
)
