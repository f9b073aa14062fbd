package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashkit/bashkit/internal/config"
	"github.com/bashkit/bashkit/internal/interp"
)

func TestOpenAppliesDefaultConfig(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	assert.Equal(t, "/", s.Env.Cwd)
	v, ok := s.Env.Get("PWD")
	require.True(t, ok)
	assert.Equal(t, "/", v)
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Username = ""
	_, err := Open(WithConfig(cfg))
	assert.Error(t, err)
}

func TestOpenAppliesEnvAndExportsIt(t *testing.T) {
	cfg := config.Default()
	cfg.Env = map[string]string{"GREETING": "hi"}
	s, err := Open(WithConfig(cfg))
	require.NoError(t, err)
	v, ok := s.Env.Get("GREETING")
	require.True(t, ok)
	assert.Equal(t, "hi", v)
	assert.Equal(t, "hi", s.Env.Exported["GREETING"])
}

func TestWithBuiltinOverridesRegistry(t *testing.T) {
	called := false
	s, err := Open(WithBuiltin("echo", func(ctx *interp.ExecContext, args []string) int {
		called = true
		return 0
	}))
	require.NoError(t, err)
	res := s.Exec("echo hi", nil)
	assert.Equal(t, 0, res.ExitStatus)
	assert.True(t, called)
}

func TestExecRunsSimpleScript(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec("echo hello", nil)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.NoError(t, res.Error)
}

func TestExecReturnsParseErrorStatus(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec("if then fi", nil)
	assert.Equal(t, 2, res.ExitStatus)
	assert.Error(t, res.Error)
}

func TestExecRejectsTooNewVersionPragma(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec("#bashkit:min-version:v99.0.0\necho hi", nil)
	assert.Equal(t, 1, res.ExitStatus)
	assert.Error(t, res.Error)
}

func TestExecAllowsSatisfiedVersionPragma(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec("#bashkit:min-version:v0.0.0\necho hi", nil)
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "hi\n", res.Stdout)
}

func TestExecRedactsSecretsInStderr(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec(`echo "api_key=abcdefghijklmnopqrstuvwxyz123456" 1>&2`, nil)
	assert.NotContains(t, res.Stderr, "abcdefghijklmnopqrstuvwxyz123456")
}

func TestExecUsesSuppliedStdin(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	res := s.Exec("cat", strings.NewReader("piped text"))
	assert.Equal(t, "piped text", res.Stdout)
}

func TestExecRejectsScriptOverInputByteLimit(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	s.Env.Limits.MaxInputBytes = 5
	res := s.Exec("echo hello", nil)
	assert.Equal(t, 1, res.ExitStatus)
	assert.Error(t, res.Error)
}

func TestOpenWiresNetworkClientWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Network = &config.NetworkConfig{AllowedHosts: []string{"example.com"}}
	s, err := Open(WithConfig(cfg))
	require.NoError(t, err)
	assert.NotNil(t, s.Network)
}

func TestOpenLeavesNetworkNilWithoutConfig(t *testing.T) {
	s, err := Open()
	require.NoError(t, err)
	assert.Nil(t, s.Network)
}
