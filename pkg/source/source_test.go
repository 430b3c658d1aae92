package source

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/velo/pkg/compression"
	"github.com/ajitpratap0/velo/pkg/errors"
	"github.com/ajitpratap0/velo/pkg/testutil"
)

const stops = "stop_id,stop_name\n1,Main\n"

func TestDirReadFile(t *testing.T) {
	for _, useMmap := range []bool{false, true} {
		dir := testutil.WriteFeedDir(t, map[string]string{"stops.txt": stops, "empty.txt": ""})
		src := NewDir(dir, useMmap)

		data, err := src.ReadFile(context.Background(), "stops.txt")
		require.NoError(t, err)
		assert.Equal(t, stops, string(data))

		data, err = src.ReadFile(context.Background(), "empty.txt")
		require.NoError(t, err)
		assert.Empty(t, data)

		_, err = src.ReadFile(context.Background(), "trips.txt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

		require.NoError(t, src.Close())
	}
}

func TestDirKind(t *testing.T) {
	assert.Equal(t, KindDir, NewDir(".", false).Kind())
	assert.Equal(t, KindMmap, NewDir(".", true).Kind())
}

func TestDirCompressedSibling(t *testing.T) {
	data, err := compression.Compress(compression.Zstd, []byte(stops), compression.Default)
	require.NoError(t, err)
	dir := testutil.WriteFeedDir(t, map[string]string{"stops.txt.zst": string(data)})

	src := NewDir(dir, true)
	defer src.Close()
	out, err := src.ReadFile(context.Background(), "stops.txt")
	require.NoError(t, err)
	assert.Equal(t, stops, string(out))
}

func TestDirCorruptSibling(t *testing.T) {
	dir := testutil.WriteFeedDir(t, map[string]string{"stops.txt.gz": "garbage"})
	_, err := NewDir(dir, false).ReadFile(context.Background(), "stops.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestZip(t *testing.T) {
	files := testutil.SampleFeed()
	path := testutil.WriteFeedZip(t, filepath.Join(t.TempDir(), "feed.zip"), files)

	open := map[string]func(string) (*Zip, error){
		"heap": OpenZip,
		"mmap": OpenMappedZip,
	}
	for name, fn := range open {
		t.Run(name, func(t *testing.T) {
			z, err := fn(path)
			require.NoError(t, err)
			defer z.Close()

			assert.Len(t, z.Names(), len(files))
			data, err := z.ReadFile(context.Background(), "stops.txt")
			require.NoError(t, err)
			assert.Equal(t, files["stops.txt"], string(data))

			_, err = z.ReadFile(context.Background(), "attributions.txt")
			assert.ErrorIs(t, err, fs.ErrNotExist)
		})
	}
}

func TestZipNestedFolder(t *testing.T) {
	path := testutil.WriteFeedZip(t, filepath.Join(t.TempDir(), "feed.zip"), map[string]string{
		"gtfs/stops.txt": stops,
	})
	z, err := OpenZip(path)
	require.NoError(t, err)
	data, err := z.ReadFile(context.Background(), "stops.txt")
	require.NoError(t, err)
	assert.Equal(t, stops, string(data))
}

func TestNewZipInvalid(t *testing.T) {
	_, err := NewZip([]byte("not a zip"), KindZip)
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := testutil.WriteFeedDir(t, map[string]string{"stops.txt": stops})
	src, err := Open(ctx, dir, Options{})
	require.NoError(t, err)
	assert.Equal(t, KindDir, src.Kind())

	zipPath := testutil.WriteFeedZip(t, filepath.Join(t.TempDir(), "feed.zip"), map[string]string{"stops.txt": stops})
	src, err = Open(ctx, zipPath, Options{Mmap: true})
	require.NoError(t, err)
	assert.Equal(t, KindZip, src.Kind())
	require.NoError(t, src.Close())

	other := filepath.Join(t.TempDir(), "feed.tar")
	require.NoError(t, os.WriteFile(other, []byte("x"), 0o600))
	_, err = Open(ctx, other, Options{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeFormat))

	_, err = Open(ctx, filepath.Join(t.TempDir(), "missing"), Options{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeFile))
}

func TestSplitBucket(t *testing.T) {
	bucket, key := splitBucket("feeds/ttc/2024/")
	assert.Equal(t, "feeds", bucket)
	assert.Equal(t, "ttc/2024", key)

	bucket, key = splitBucket("feeds")
	assert.Equal(t, "feeds", bucket)
	assert.Equal(t, "", key)
}

type fakeS3 struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.keys = append(f.keys, key)
	data, ok := f.objects[key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestS3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"feeds/ttc/stops.txt": []byte(stops)}}
	src := newS3(fake, "bucket", "feeds/ttc")

	data, err := src.ReadFile(context.Background(), "stops.txt")
	require.NoError(t, err)
	assert.Equal(t, stops, string(data))
	assert.Equal(t, KindS3, src.Kind())

	_, err = src.ReadFile(context.Background(), "trips.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, fake.keys, "feeds/ttc/trips.txt.zst", "compressed siblings are tried")
}

func TestGCS(t *testing.T) {
	objects := map[string][]byte{"feed/stops.txt": []byte(stops)}
	src := newGCS("bucket", "feed", func(_ context.Context, key string) (io.ReadCloser, int64, error) {
		data, ok := objects[key]
		if !ok {
			return nil, 0, storage.ErrObjectNotExist
		}
		return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
	})

	data, err := src.ReadFile(context.Background(), "stops.txt")
	require.NoError(t, err)
	assert.Equal(t, stops, string(data))

	_, err = src.ReadFile(context.Background(), "trips.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRemoteConnectionError(t *testing.T) {
	src := newGCS("bucket", "", func(context.Context, string) (io.ReadCloser, int64, error) {
		return nil, 0, io.ErrUnexpectedEOF
	})
	_, err := src.ReadFile(context.Background(), "stops.txt")
	assert.True(t, errors.IsRetryable(err))
}
