package vfs

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenReadReturnsSnapshot(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/f", []byte("hello world")))

	rh, err := fs.OpenRead("/f")
	require.NoError(t, err)
	data, err := io.ReadAll(rh)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestOpenReadMissingFile(t *testing.T) {
	fs := newTestFS()
	_, err := fs.OpenRead("/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpenWriteBuffersUntilClose(t *testing.T) {
	fs := newTestFS()
	wh, err := fs.OpenWrite("/f", false)
	require.NoError(t, err)
	_, err = wh.Write([]byte("chunk1"))
	require.NoError(t, err)
	_, err = wh.Write([]byte("chunk2"))
	require.NoError(t, err)

	assert.False(t, fs.Exists("/f"))

	require.NoError(t, wh.Close())
	data, err := fs.Read("/f")
	require.NoError(t, err)
	assert.Equal(t, "chunk1chunk2", string(data))
}

func TestOpenWriteAppendMode(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/f", []byte("start-")))

	wh, err := fs.OpenWrite("/f", true)
	require.NoError(t, err)
	_, err = wh.Write([]byte("end"))
	require.NoError(t, err)
	require.NoError(t, wh.Close())

	data, err := fs.Read("/f")
	require.NoError(t, err)
	assert.Equal(t, "start-end", string(data))
}
