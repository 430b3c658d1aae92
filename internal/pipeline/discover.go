package pipeline

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/gtfs"
)

// Candidate is a discovered feed location with its estimated size.
type Candidate struct {
	Path string
	Size int64
}

// Discover finds feeds at root. A root that is itself a feed directory or a
// .zip archive yields one candidate. Otherwise each immediate subdirectory
// holding feed files and each .zip archive is a candidate. Candidates are
// sorted by size, largest first.
func Discover(root string) ([]Candidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "cannot access feed root").WithDetail("path", root)
	}
	if !info.IsDir() {
		if !isZip(root) {
			return nil, errors.New(errors.ErrorTypeFormat, "feed root is neither a directory nor a .zip archive").
				WithDetail("path", root)
		}
		return []Candidate{{Path: root, Size: info.Size()}}, nil
	}
	if size, ok := feedDirSize(root); ok {
		return []Candidate{{Path: root, Size: size}}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "cannot list feed root").WithDetail("path", root)
	}
	var out []Candidate
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		switch {
		case e.IsDir():
			if size, ok := feedDirSize(path); ok {
				out = append(out, Candidate{Path: path, Size: size})
			}
		case isZip(e.Name()):
			if fi, err := e.Info(); err == nil {
				out = append(out, Candidate{Path: path, Size: fi.Size()})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// Paths returns the candidate paths in order.
func Paths(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Path
	}
	return out
}

// feedDirSize sums the sizes of known feed files in dir, including
// compressed siblings. It reports false when dir holds none of them.
func feedDirSize(dir string) (int64, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, false
	}
	var (
		size  int64
		found bool
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_, base := compression.FromExtension(e.Name())
		if !isFeedFile(base) {
			continue
		}
		found = true
		if fi, err := e.Info(); err == nil {
			size += fi.Size()
		}
	}
	return size, found
}

func isFeedFile(name string) bool {
	if filepath.Ext(name) != gtfs.Ext {
		return false
	}
	return slices.Contains(gtfs.Names, strings.TrimSuffix(name, gtfs.Ext))
}

func isZip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}
