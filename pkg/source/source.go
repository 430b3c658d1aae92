// Package source acquires the raw bytes of feed files from local
// directories, zip archives (optionally memory-mapped) and object stores.
// Every Source satisfies gtfs.Reader.
package source

import (
	"context"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/metrics"
)

// Source kinds, used as the metrics label.
const (
	KindDir  = "dir"
	KindMmap = "mmap"
	KindZip  = "zip"
	KindS3   = "s3"
	KindGCS  = "gcs"
)

// Source supplies feed files by name. Buffers returned by a memory-mapped
// source are valid only until Close.
type Source interface {
	// Kind names the backend (dir, mmap, zip, s3, gcs).
	Kind() string
	// ReadFile returns the decompressed contents of name. A file that does
	// not exist yields an error wrapping fs.ErrNotExist.
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Close() error
}

// Options configures Open.
type Options struct {
	// Mmap maps local files instead of reading them onto the heap.
	Mmap bool
	// Region is the AWS region for s3:// locations.
	Region string
	// CredentialsFile is a service account key for gs:// locations.
	CredentialsFile string
	Logger          *zap.Logger
}

// Open picks a source for location: s3://bucket/prefix, gs://bucket/prefix,
// a local directory or a local .zip archive. Remote locations ending in .zip
// are downloaded once and read as archives.
func Open(ctx context.Context, location string, opts Options) (Source, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.With(zap.String("location", location))

	switch {
	case strings.HasPrefix(location, "s3://"):
		bucket, key := splitBucket(strings.TrimPrefix(location, "s3://"))
		src, err := NewS3(ctx, bucket, key, opts.Region)
		if err != nil {
			return nil, err
		}
		return remoteArchive(ctx, src, key, log)
	case strings.HasPrefix(location, "gs://"):
		bucket, key := splitBucket(strings.TrimPrefix(location, "gs://"))
		src, err := NewGCS(ctx, bucket, key, opts.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return remoteArchive(ctx, src, key, log)
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "cannot open feed location").
			WithDetail("location", location)
	}
	if info.IsDir() {
		log.Debug("opening directory source", zap.Bool("mmap", opts.Mmap))
		return NewDir(location, opts.Mmap), nil
	}
	if strings.EqualFold(extOf(location), ".zip") {
		log.Debug("opening zip source", zap.Bool("mmap", opts.Mmap))
		if opts.Mmap {
			return OpenMappedZip(location)
		}
		return OpenZip(location)
	}
	return nil, errors.Newf(errors.ErrorTypeFormat, "unsupported feed location %q: want a directory or .zip", location)
}

// remoteArchive turns a prefix source into a zip source when key names an archive.
func remoteArchive(ctx context.Context, src *Remote, key string, log *zap.Logger) (Source, error) {
	if !strings.EqualFold(extOf(key), ".zip") {
		log.Debug("opening object store prefix", zap.String("kind", src.kind))
		return src, nil
	}
	log.Debug("downloading archive", zap.String("kind", src.kind))
	data, err := src.fetch(ctx, key)
	if err != nil {
		src.Close()
		return nil, err
	}
	metrics.BytesRead.WithLabelValues(src.kind).Add(float64(len(data)))
	z, err := NewZip(data, src.kind)
	if err != nil {
		src.Close()
		return nil, err
	}
	z.closer = src.Close
	return z, nil
}

func splitBucket(s string) (bucket, key string) {
	bucket, key, _ = strings.Cut(s, "/")
	return bucket, strings.TrimSuffix(key, "/")
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && !strings.ContainsAny(name[i:], `/\`) {
		return name[i:]
	}
	return ""
}

// readWithSiblings fetches name or, if it is absent, the first compressed
// sibling such as name.zst, and returns the decompressed bytes.
func readWithSiblings(ctx context.Context, kind, name string, fetch func(ctx context.Context, name string) ([]byte, error)) ([]byte, error) {
	data, err := fetch(ctx, name)
	if err == nil {
		metrics.BytesRead.WithLabelValues(kind).Add(float64(len(data)))
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, ext := range compression.Extensions() {
		raw, serr := fetch(ctx, name+ext)
		if serr != nil {
			if errors.Is(serr, fs.ErrNotExist) {
				continue
			}
			return nil, serr
		}
		metrics.BytesRead.WithLabelValues(kind).Add(float64(len(raw)))
		alg, _ := compression.FromExtension(name + ext)
		out, derr := compression.Decompress(alg, raw)
		if derr != nil {
			return nil, errors.Wrap(derr, errors.ErrorTypeFormat, "failed to decompress "+name+ext)
		}
		return out, nil
	}
	return nil, notFound(kind, name)
}

func notFound(kind, name string) error {
	return errors.Wrap(fs.ErrNotExist, errors.ErrorTypeNotFound, name+" not found").
		WithDetail("source", kind)
}
