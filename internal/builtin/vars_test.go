package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinExportSetsAndExports(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	status := builtinExport(ctx, []string{"FOO=bar"})
	assert.Equal(t, 0, status)
	v, ok := ctx.Session.Get("FOO")
	require.True(t, ok)
	assert.Equal(t, "bar", v)
	assert.Equal(t, "bar", ctx.Session.Exported["FOO"])
}

func TestBuiltinUnsetRemovesVariable(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	require.NoError(t, ctx.Session.Set("X", "1"))
	builtinUnset(ctx, []string{"X"})
	_, ok := ctx.Session.Get("X")
	assert.False(t, ok)
}

func TestBuiltinReadonlyRejectsLaterAssignment(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinReadonly(ctx, []string{"X=1"})
	err := ctx.Session.Set("X", "2")
	assert.Error(t, err)
}

func TestBuiltinLocalSetsInCurrentScope(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinLocal(ctx, []string{"X=local-value"})
	v, ok := ctx.Session.Get("X")
	require.True(t, ok)
	assert.Equal(t, "local-value", v)
}

func TestBuiltinDeclareExportFlag(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinDeclare(ctx, []string{"-x", "X=1"})
	assert.Equal(t, "1", ctx.Session.Exported["X"])
}

func TestBuiltinReadSplitsLineAcrossNames(t *testing.T) {
	ctx, _, _ := newCtx(t, "alice 30\n")
	status := builtinRead(ctx, []string{"name", "age"})
	assert.Equal(t, 0, status)
	name, _ := ctx.Session.Get("name")
	age, _ := ctx.Session.Get("age")
	assert.Equal(t, "alice", name)
	assert.Equal(t, "30", age)
}

func TestBuiltinReadDefaultsToReply(t *testing.T) {
	ctx, _, _ := newCtx(t, "hello\n")
	builtinRead(ctx, nil)
	v, ok := ctx.Session.Get("REPLY")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestBuiltinReadReturnsOneOnEOF(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	status := builtinRead(ctx, nil)
	assert.Equal(t, 1, status)
}

func TestBuiltinSetErrexitFlag(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinSet(ctx, []string{"-e"})
	assert.True(t, ctx.Session.Options.ErrExit)
}

func TestBuiltinSetPositionalArgs(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinSet(ctx, []string{"--", "a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, ctx.Session.Positional)
}

func TestBuiltinSetOptionByName(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	builtinSet(ctx, []string{"-o", "pipefail"})
	assert.True(t, ctx.Session.Options.PipeFail)
}

func TestBuiltinShiftDropsLeadingPositionals(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ctx.Session.Positional = []string{"a", "b", "c"}
	status := builtinShift(ctx, nil)
	assert.Equal(t, 0, status)
	assert.Equal(t, []string{"b", "c"}, ctx.Session.Positional)
}

func TestBuiltinShiftByN(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ctx.Session.Positional = []string{"a", "b", "c"}
	builtinShift(ctx, []string{"2"})
	assert.Equal(t, []string{"c"}, ctx.Session.Positional)
}

func TestBuiltinShiftBeyondLengthFails(t *testing.T) {
	ctx, _, _ := newCtx(t, "")
	ctx.Session.Positional = []string{"a"}
	status := builtinShift(ctx, []string{"5"})
	assert.Equal(t, 1, status)
	assert.Nil(t, ctx.Session.Positional)
}
