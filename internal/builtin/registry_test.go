package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryLookupFindsRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("hi", builtinTrue)
	fn, ok := r.Lookup("hi")
	assert.True(t, ok)
	assert.NotNil(t, fn)
}

func TestRegistryLookupMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("nope")
	assert.False(t, ok)
}

func TestDefaultRegistryHasCoreBuiltins(t *testing.T) {
	r := Default()
	for _, name := range []string{"true", "false", "echo", "pwd", "cd", "export", "test", "[", "grep", "sed"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, "expected builtin %q to be registered", name)
	}
}
