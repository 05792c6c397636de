package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := map[string]bool{
		"":           false,
		"abc123":     false,
		"abcdefgh":   false,
		"12345678":   false,
		"abcdefg1":   true,
		"Pässwort12": true,
	}
	for pw, want := range tests {
		assert.Equal(t, want, ValidatePassword(pw), pw)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "secret124"))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		pw, err := GenerateTemporaryPassword()
		require.NoError(t, err)
		assert.Len(t, pw, tempPasswordLen)
		assert.True(t, ValidatePassword(pw), pw)
		assert.NotContains(t, pw, "0")
		assert.NotContains(t, pw, "l")
		seen[pw] = true
	}
	assert.Greater(t, len(seen), 45)
}
