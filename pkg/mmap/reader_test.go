package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestOpenAndBytes(t *testing.T) {
	r, err := Open(writeFile(t, "stop_id,stop_name\n1,Main\n"))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 24, r.Len())
	assert.Equal(t, "stop_id,stop_name\n1,Main\n", string(r.Bytes()))
	assert.Equal(t, int64(24), r.BytesRead())
}

func TestEmptyFile(t *testing.T) {
	r, err := Open(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Bytes())
	require.NoError(t, r.Close())
}

func TestReadAt(t *testing.T) {
	r, err := Open(writeFile(t, "0123456789"))
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 4)
	n, err := r.ReadAt(buf, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, "3456", string(buf))

	n, err = r.ReadAt(buf, 8)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, n)

	_, err = r.ReadAt(buf, 10)
	assert.Equal(t, io.EOF, err)
}

func TestCloseTwiceAndUseAfterClose(t *testing.T) {
	r, err := Open(writeFile(t, "abc"))
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	assert.Nil(t, r.Bytes())
	_, err = r.ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
