package builtin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/interp"
	"github.com/bashkit/bashkit/internal/vfs"
)

func newCtx(t *testing.T, stdin string) (*interp.ExecContext, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	s := env.NewSession(1)
	fs := vfs.New(vfs.DefaultLimits())
	var stdout, stderr bytes.Buffer
	ctx := &interp.ExecContext{
		Session: s,
		FS:      fs,
		Stdin:   strings.NewReader(stdin),
		Stdout:  &stdout,
		Stderr:  &stderr,
	}
	return ctx, &stdout, &stderr
}

func TestBuiltinEchoJoinsArgsWithSpace(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	status := builtinEcho(ctx, []string{"a", "b"})
	assert.Equal(t, 0, status)
	assert.Equal(t, "a b\n", out.String())
}

func TestBuiltinEchoNoNewlineFlag(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinEcho(ctx, []string{"-n", "no-newline"})
	assert.Equal(t, "no-newline", out.String())
}

func TestBuiltinEchoEscapeFlag(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinEcho(ctx, []string{"-e", `a\tb`})
	assert.Equal(t, "a\tb\n", out.String())
}

func TestBuiltinPrintfCyclesFormatOverArgs(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinPrintf(ctx, []string{"%s=%d\n", "a", "1", "b", "2"})
	assert.Equal(t, "a=1\nb=2\n", out.String())
}

func TestBuiltinCatReadsFromFile(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	require.NoError(t, ctx.FS.Write("/f.txt", []byte("contents")))
	status := builtinCat(ctx, []string{"/f.txt"})
	assert.Equal(t, 0, status)
	assert.Equal(t, "contents", out.String())
}

func TestBuiltinCatReadsStdinWhenNoArgs(t *testing.T) {
	ctx, out, _ := newCtx(t, "piped in")
	builtinCat(ctx, nil)
	assert.Equal(t, "piped in", out.String())
}

func TestBuiltinPwdDefaultsToRoot(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinPwd(ctx, nil)
	assert.Equal(t, "/\n", out.String())
}

func TestBuiltinCdChangesCwdOnExistingDir(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	require.NoError(t, ctx.FS.Mkdir("/home/work", true))
	status := builtinCd(ctx, []string{"/home/work"})
	assert.Equal(t, 0, status)
	assert.Equal(t, "/home/work", ctx.Session.Cwd)
}

func TestBuiltinCdFailsOnMissingDir(t *testing.T) {
	ctx, _, stderr := newCtx(t, "")
	status := builtinCd(ctx, []string{"/nope"})
	assert.Equal(t, 1, status)
	assert.Contains(t, stderr.String(), "No such directory")
}

func TestBuiltinMkdirCreatesParents(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	status := builtinMkdir(ctx, []string{"-p", "/a/b/c"})
	assert.Equal(t, 0, status)
	md, err := ctx.FS.Metadata("/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, vfs.Directory, md.Kind)
}

func TestBuiltinRmRemovesFile(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	require.NoError(t, ctx.FS.Write("/f", []byte("x")))
	status := builtinRm(ctx, []string{"/f"})
	assert.Equal(t, 0, status)
	assert.False(t, ctx.FS.Exists("/f"))
}

func TestBuiltinLsListsEntriesSorted(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	require.NoError(t, ctx.FS.Write("/dir/b", []byte("x")))
	require.NoError(t, ctx.FS.Write("/dir/a", []byte("x")))
	builtinLs(ctx, []string{"/dir"})
	assert.Equal(t, "a\nb\n", out.String())
}

func TestBuiltinGrepFiltersMatchingLines(t *testing.T) {
	ctx, out, _ := newCtx(t, "foo\nbar\nfoobar\n")
	status := builtinGrep(ctx, []string{"foo"})
	assert.Equal(t, 0, status)
	assert.Equal(t, "foo\nfoobar\n", out.String())
}

func TestBuiltinGrepInvertMatch(t *testing.T) {
	ctx, out, _ := newCtx(t, "foo\nbar\n")
	builtinGrep(ctx, []string{"-v", "foo"})
	assert.Equal(t, "bar\n", out.String())
}

func TestBuiltinGrepNoMatchReturnsOne(t *testing.T) {
	ctx, _, _ := newCtx(t, "foo\n")
	status := builtinGrep(ctx, []string{"zzz"})
	assert.Equal(t, 1, status)
}

func TestBuiltinSedSubstitutesFirstByDefault(t *testing.T) {
	ctx, out, _ := newCtx(t, "foo foo\n")
	builtinSed(ctx, []string{"s/foo/bar/"})
	assert.Equal(t, "bar foo\n", out.String())
}

func TestBuiltinSedGlobalFlag(t *testing.T) {
	ctx, out, _ := newCtx(t, "foo foo\n")
	builtinSed(ctx, []string{"s/foo/bar/g"})
	assert.Equal(t, "bar bar\n", out.String())
}

func TestBuiltinWcCountsLinesWordsBytes(t *testing.T) {
	ctx, out, _ := newCtx(t, "one two\nthree\n")
	builtinWc(ctx, nil)
	assert.Equal(t, "2 3 14\n", out.String())
}

func TestBuiltinWcLinesOnly(t *testing.T) {
	ctx, out, _ := newCtx(t, "a\nb\nc\n")
	builtinWc(ctx, []string{"-l"})
	assert.Equal(t, "3\n", out.String())
}

func TestBuiltinHeadLimitsLines(t *testing.T) {
	ctx, out, _ := newCtx(t, "1\n2\n3\n4\n")
	builtinHead(ctx, []string{"-n", "2"})
	assert.Equal(t, "1\n2\n", out.String())
}

func TestBuiltinTailLimitsLines(t *testing.T) {
	ctx, out, _ := newCtx(t, "1\n2\n3\n4\n")
	builtinTail(ctx, []string{"-n", "2"})
	assert.Equal(t, "3\n4\n", out.String())
}

func TestBuiltinSortOrdersLines(t *testing.T) {
	ctx, out, _ := newCtx(t, "banana\napple\ncherry\n")
	builtinSort(ctx, nil)
	assert.Equal(t, "apple\nbanana\ncherry\n", out.String())
}

func TestBuiltinSortNumericReverse(t *testing.T) {
	ctx, out, _ := newCtx(t, "3\n1\n2\n")
	builtinSort(ctx, []string{"-n", "-r"})
	assert.Equal(t, "3\n2\n1\n", out.String())
}

func TestBuiltinCutSelectsFields(t *testing.T) {
	ctx, out, _ := newCtx(t, "a:b:c\n")
	builtinCut(ctx, []string{"-d", ":", "-f", "1,3"})
	assert.Equal(t, "a:c\n", out.String())
}

func TestBuiltinTrTranslatesChars(t *testing.T) {
	ctx, out, _ := newCtx(t, "abc")
	builtinTr(ctx, []string{"abc", "xyz"})
	assert.Equal(t, "xyz", out.String())
}

func TestBuiltinTrDeletesChars(t *testing.T) {
	ctx, out, _ := newCtx(t, "abc")
	builtinTr(ctx, []string{"-d", "b"})
	assert.Equal(t, "ac", out.String())
}

func TestBuiltinBasenameStripsSuffix(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinBasename(ctx, []string{"/a/b/c.txt", ".txt"})
	assert.Equal(t, "c\n", out.String())
}

func TestBuiltinDirnameReturnsParent(t *testing.T) {
	ctx, out, _ := newCtx(t, "")
	builtinDirname(ctx, []string{"/a/b/c.txt"})
	assert.Equal(t, "/a/b\n", out.String())
}

func TestEvalTestUnaryStringChecks(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ok, err := evalTest(ctx, []string{"-z", ""})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalTest(ctx, []string{"-n", "x"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalTestFileChecks(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	require.NoError(t, ctx.FS.Write("/f", []byte("x")))
	require.NoError(t, ctx.FS.Mkdir("/d", false))

	ok, err := evalTest(ctx, []string{"-f", "/f"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalTest(ctx, []string{"-d", "/d"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalTest(ctx, []string{"-e", "/nope"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalTestBinaryComparisons(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ok, err := evalTest(ctx, []string{"a", "=", "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalTest(ctx, []string{"3", "-gt", "2"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalTest(ctx, []string{"3", "-lt", "2"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalTestNegation(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ok, err := evalTest(ctx, []string{"!", "-z", "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBuiltinTestBracketRequiresClosingBracket(t *testing.T) {
	ctx, _, stderr := newCtx(t, "")
	status := builtinTestBracket(ctx, []string{"-z", ""})
	assert.Equal(t, 2, status)
	assert.Contains(t, stderr.String(), "missing closing")
}

func TestResolvePathJoinsRelativeAgainstCwd(t *testing.T) {
	assert.Equal(t, "/a/b", resolvePath("/a", "b"))
	assert.Equal(t, "/x", resolvePath("", "/x"))
	assert.Equal(t, "/a/b", resolvePath("/a/c", "../b"))
}
