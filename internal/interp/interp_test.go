package interp_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/builtin"
	"github.com/bashkit/bashkit/internal/env"
	"github.com/bashkit/bashkit/internal/interp"
	"github.com/bashkit/bashkit/internal/parser"
	"github.com/bashkit/bashkit/internal/vfs"
)

func run(t *testing.T, src, stdin string) (string, string, int) {
	t.Helper()
	prog, err := parser.Parse(src, parser.DefaultOptions())
	require.NoError(t, err)

	sess := env.NewSession(1)
	fs := vfs.New(vfs.DefaultLimits())
	it := interp.New(sess, fs, builtin.Default())

	var stdout, stderr bytes.Buffer
	status := it.Run(prog, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), status
}

func TestExecEchoWritesStdout(t *testing.T) {
	out, _, status := run(t, "echo hello", "")
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, 0, status)
}

func TestExecPipelineConnectsStdoutToStdin(t *testing.T) {
	out, _, status := run(t, "echo hello | wc -l", "")
	assert.Equal(t, 0, status)
	assert.Equal(t, "1\n", out)
}

func TestExecAndOrShortCircuits(t *testing.T) {
	out, _, status := run(t, "false && echo yes; true || echo no", "")
	assert.Equal(t, "", out)
	assert.Equal(t, 0, status)
}

func TestExecIfElse(t *testing.T) {
	out, _, _ := run(t, "if true; then echo A; else echo B; fi", "")
	assert.Equal(t, "A\n", out)

	out, _, _ = run(t, "if false; then echo A; else echo B; fi", "")
	assert.Equal(t, "B\n", out)
}

func TestExecForLoop(t *testing.T) {
	out, _, _ := run(t, "for x in a b c; do echo $x; done", "")
	assert.Equal(t, "a\nb\nc\n", out)
}

func TestExecCForLoop(t *testing.T) {
	out, _, _ := run(t, "for ((i=0; i<3; i++)); do echo $i; done", "")
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestExecWhileLoop(t *testing.T) {
	out, _, _ := run(t, "i=0; while [[ $i -lt 3 ]]; do echo $i; i=$((i+1)); done", "")
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestExecBreakExitsLoop(t *testing.T) {
	out, _, _ := run(t, "for x in a b c; do if [[ $x == b ]]; then break; fi; echo $x; done", "")
	assert.Equal(t, "a\n", out)
}

func TestExecContinueSkipsIteration(t *testing.T) {
	out, _, _ := run(t, "for x in a b c; do if [[ $x == b ]]; then continue; fi; echo $x; done", "")
	assert.Equal(t, "a\nc\n", out)
}

func TestExecCase(t *testing.T) {
	out, _, _ := run(t, "x=b; case $x in a) echo A;; b|c) echo BC;; *) echo other;; esac", "")
	assert.Equal(t, "BC\n", out)
}

func TestExecFunctionDefinitionAndCall(t *testing.T) {
	out, _, _ := run(t, "greet() { echo hi $1; }; greet world", "")
	assert.Equal(t, "hi world\n", out)
}

func TestExecFunctionReturnStatus(t *testing.T) {
	_, _, status := run(t, "f() { return 3; }; f", "")
	assert.Equal(t, 3, status)
}

func TestExecSubshellDoesNotLeakVariables(t *testing.T) {
	out, _, _ := run(t, "(X=inner); echo ${X:-unset}", "")
	assert.Equal(t, "unset\n", out)
}

func TestExecCommandSubstitution(t *testing.T) {
	out, _, _ := run(t, `echo "result: $(echo nested)"`, "")
	assert.Equal(t, "result: nested\n", out)
}

func TestExecArithCommand(t *testing.T) {
	_, _, status := run(t, "((1 + 1 == 2))", "")
	assert.Equal(t, 0, status)
	_, _, status = run(t, "((0))", "")
	assert.Equal(t, 1, status)
}

func TestExecCondExprStringEquality(t *testing.T) {
	_, _, status := run(t, `[[ "a" == "a" ]]`, "")
	assert.Equal(t, 0, status)
	_, _, status = run(t, `[[ "a" == "b" ]]`, "")
	assert.Equal(t, 1, status)
}

func TestExecCondExprLeGeIncludeEqual(t *testing.T) {
	_, _, status := run(t, `[[ 5 -le 5 ]]`, "")
	assert.Equal(t, 0, status)
	_, _, status = run(t, `[[ 5 -ge 5 ]]`, "")
	assert.Equal(t, 0, status)
	_, _, status = run(t, `[[ 6 -le 5 ]]`, "")
	assert.Equal(t, 1, status)
	_, _, status = run(t, `[[ 4 -ge 5 ]]`, "")
	assert.Equal(t, 1, status)
}

func TestExecPipefailReturnsRightmostFailure(t *testing.T) {
	_, _, status := run(t, `set -o pipefail; false | true | (exit 2)`, "")
	assert.Equal(t, 2, status)
}

func TestExecCommandNotFound(t *testing.T) {
	_, stderr, status := run(t, "totallynotarealcommand", "")
	assert.Equal(t, 127, status)
	assert.Contains(t, stderr, "command not found")
}

func TestExecCommandNotFoundSuggestsCloseBuiltin(t *testing.T) {
	_, stderr, status := run(t, "ech hi", "")
	assert.Equal(t, 127, status)
	assert.Contains(t, stderr, "command not found")
	assert.Contains(t, stderr, `did you mean "echo"?`)
}

func TestExecRedirectionToFileThenCat(t *testing.T) {
	out, _, _ := run(t, "echo hi > /out.txt; cat /out.txt", "")
	assert.Equal(t, "hi\n", out)
}

func TestExecHeredoc(t *testing.T) {
	out, _, _ := run(t, "cat <<EOF\nline1\nline2\nEOF\n", "")
	assert.Equal(t, "line1\nline2\n", out)
}

func TestExecErrexitAbortsOnFailure(t *testing.T) {
	out, _, status := run(t, "set -e; false; echo unreachable", "")
	assert.Equal(t, "", out)
	assert.Equal(t, 1, status)
}

func TestExecStopsOnOutputByteLimit(t *testing.T) {
	prog, err := parser.Parse(`echo aaaaaaaaaa`, parser.DefaultOptions())
	require.NoError(t, err)

	sess := env.NewSession(1)
	sess.Limits.MaxOutputBytes = 5
	fs := vfs.New(vfs.DefaultLimits())
	it := interp.New(sess, fs, builtin.Default())

	var stdout, stderr bytes.Buffer
	status := it.Run(prog, strings.NewReader(""), &stdout, &stderr)
	assert.NotEqual(t, 0, status)
	assert.Less(t, stdout.Len(), len("aaaaaaaaaa\n"))
}

func TestExecStopsOnWallClockDeadline(t *testing.T) {
	prog, err := parser.Parse(`while true; do :; done`, parser.DefaultOptions())
	require.NoError(t, err)

	sess := env.NewSession(1)
	sess.Limits.WallClockTimeout = -1 * time.Second
	sess.Limits.StartClock()
	fs := vfs.New(vfs.DefaultLimits())
	it := interp.New(sess, fs, builtin.Default())

	var stdout, stderr bytes.Buffer
	status := it.Run(prog, strings.NewReader(""), &stdout, &stderr)
	assert.NotEqual(t, 0, status)
}
