package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandSpec(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		display string
	}{
		{
			name:    "single token",
			tokens:  []string{"/bin/sh"},
			display: "/bin/sh",
		},
		{
			name:    "multiple tokens",
			tokens:  []string{"/bin/sh", "-i"},
			display: "/bin/sh -i",
		},
		{
			name:    "empty tokens are preserved",
			tokens:  []string{"echo", "", "x"},
			display: "echo  x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewCommandSpec(tt.tokens)
			require.NoError(t, err)
			assert.Equal(t, tt.tokens, spec.Tokens())
			assert.Equal(t, tt.display, spec.String())
		})
	}
}

func TestNewCommandSpecEmpty(t *testing.T) {
	_, err := NewCommandSpec(nil)
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = NewCommandSpec([]string{})
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestCommandSpecCopiesInput(t *testing.T) {
	tokens := []string{"echo", "hello"}
	spec, err := NewCommandSpec(tokens)
	require.NoError(t, err)

	// Mutating the caller's slice must not affect the spec.
	tokens[1] = "mutated"
	assert.Equal(t, []string{"echo", "hello"}, spec.Tokens())

	// Mutating the returned copy must not affect the spec either.
	out := spec.Tokens()
	out[0] = "mutated"
	assert.Equal(t, []string{"echo", "hello"}, spec.Tokens())
}

func TestSubstituteUser(t *testing.T) {
	spec, err := NewCommandSpec([]string{"login", "-f", UserPlaceholder})
	require.NoError(t, err)
	assert.True(t, spec.needsUser())

	substituted := spec.substituteUser("alice")
	assert.Equal(t, []string{"login", "-f", "alice"}, substituted.Tokens())
	assert.Equal(t, "login -f alice", substituted.String())
	assert.False(t, substituted.needsUser())

	// The original spec is an immutable value.
	assert.Equal(t, []string{"login", "-f", UserPlaceholder}, spec.Tokens())
	assert.Equal(t, "login -f "+UserPlaceholder, spec.String())
}

func TestSubstituteUserReplacesEveryPlaceholder(t *testing.T) {
	spec, err := NewCommandSpec([]string{UserPlaceholder, "x", UserPlaceholder})
	require.NoError(t, err)

	substituted := spec.substituteUser("bob")
	assert.Equal(t, []string{"bob", "x", "bob"}, substituted.Tokens())
}

func TestSubstituteUserIgnoresPartialMatches(t *testing.T) {
	spec, err := NewCommandSpec([]string{"echo", "$USERNAME", "pre$USER"})
	require.NoError(t, err)
	assert.False(t, spec.needsUser())

	substituted := spec.substituteUser("alice")
	assert.Equal(t, spec.Tokens(), substituted.Tokens())
}
