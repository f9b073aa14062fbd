package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasMeta(t *testing.T) {
	assert.True(t, HasMeta("*.txt"))
	assert.True(t, HasMeta("file?.go"))
	assert.True(t, HasMeta("[abc]"))
	assert.False(t, HasMeta("plain.txt"))
}

func TestGlobStarMatchesWithinDirectoryOnly(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/dir", false))
	require.NoError(t, fs.Write("/dir/a.txt", []byte("a")))
	require.NoError(t, fs.Write("/dir/b.txt", []byte("b")))
	require.NoError(t, fs.Write("/dir/c.log", []byte("c")))

	matches, err := fs.Glob("/", "/dir/*.txt")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/dir/a.txt", "/dir/b.txt"}, matches)
}

func TestGlobDoesNotCrossSlash(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/dir/sub", true))
	require.NoError(t, fs.Write("/dir/sub/x.txt", []byte("x")))

	matches, err := fs.Glob("/", "/*.txt")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestGlobRelativeBase(t *testing.T) {
	fs := newTestFS()
	require.NoError(t, fs.Mkdir("/work", false))
	require.NoError(t, fs.Write("/work/one.sh", []byte("1")))

	matches, err := fs.Glob("/work", "*.sh")
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/one.sh"}, matches)
}
