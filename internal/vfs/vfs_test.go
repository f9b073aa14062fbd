package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFS() *FS { return New(DefaultLimits()) }

func TestWriteReadRoundTrip(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/c.txt", []byte("hello")))
	data, err := fs.Read("/c.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestReadMissingFile(t *testing.T) {
	fs := newTestFS()
	_, err := fs.Read("/nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteRejectsMissingParent(t *testing.T) {
	fs := newTestFS()
	err := fs.Write("/a/b/c.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppend(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/f", []byte("one")))
	require.NoError(t, fs.Append("/f", []byte("two")))
	data, err := fs.Read("/f")
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(data))
}

func TestMkdirAndListDir(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/dir", false))
	require.NoError(t, fs.Write("/dir/a.txt", []byte("a")))
	require.NoError(t, fs.Write("/dir/b.txt", []byte("b")))
	entries, err := fs.ListDir("/dir")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, entries)
}

func TestMkdirWithoutParentsFails(t *testing.T) {
	fs := newTestFS()
	err := fs.Mkdir("/a/b", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMkdirWithParents(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/a/b/c", true))
	assert.True(t, fs.Exists("/a/b/c"))
}

func TestRemove(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/f", []byte("x")))
	require.NoError(t, fs.Remove("/f", false))
	assert.False(t, fs.Exists("/f"))
}

func TestRemoveNonEmptyDirRequiresRecursive(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/dir", false))
	require.NoError(t, fs.Write("/dir/f", []byte("x")))
	err := fs.Remove("/dir", false)
	require.Error(t, err)
	require.NoError(t, fs.Remove("/dir", true))
	assert.False(t, fs.Exists("/dir"))
}

func TestMetadataDistinguishesFileAndDir(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/f", []byte("abc")))
	require.NoError(t, fs.Mkdir("/d", false))

	md, err := fs.Metadata("/f")
	require.NoError(t, err)
	assert.Equal(t, RegularFile, md.Kind)
	assert.Equal(t, int64(3), md.Size)

	md, err = fs.Metadata("/d")
	require.NoError(t, err)
	assert.Equal(t, Directory, md.Kind)
}

func TestNormalizeResolvesDotDot(t *testing.T) {
	np, err := Normalize("/a/b/../c")
	require.NoError(t, err)
	assert.Equal(t, "/a/c", np)
}

func TestNormalizeDotDotAtRootIsNoop(t *testing.T) {
	np, err := Normalize("/../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/etc/passwd", np)
}

func TestQuotaExceeded(t *testing.T) {
	fs := New(Limits{MaxFileSize: 4, MaxTotalSize: 100, MaxFileCount: 10})
	err := fs.Write("/big", []byte("12345"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRename(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/old", []byte("x")))
	require.NoError(t, fs.Rename("/old", "/new"))
	assert.False(t, fs.Exists("/old"))
	data, err := fs.Read("/new")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestIdenticalContentSharesOneBlock(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/a", []byte("same bytes")))
	require.NoError(t, fs.Write("/b", []byte("same bytes")))
	a, err := fs.lookup("/a")
	require.NoError(t, err)
	b, err := fs.lookup("/b")
	require.NoError(t, err)
	assert.Same(t, a.block, b.block)
	assert.Equal(t, 2, a.block.count)
}

func TestOverwriteReleasesOldBlock(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/a", []byte("shared")))
	require.NoError(t, fs.Write("/b", []byte("shared")))
	n, err := fs.lookup("/a")
	require.NoError(t, err)
	blk := n.block
	require.NoError(t, fs.Write("/a", []byte("different")))
	assert.Equal(t, 1, blk.count)
}

func TestRemoveReleasesBlockFromStore(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Write("/a", []byte("only copy")))
	n, err := fs.lookup("/a")
	require.NoError(t, err)
	fast := n.block.fast
	require.NoError(t, fs.Remove("/a", false))
	assert.Empty(t, fs.blocks[fast])
}
