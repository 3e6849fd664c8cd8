package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, VerifyPassword("correct horse battery staple", hash))
	assert.ErrorIs(t, VerifyPassword("wrong", hash), ErrPasswordMismatch)
}

func TestVerifyPassword_EmptyHash(t *testing.T) {
	assert.ErrorIs(t, VerifyPassword("", ""), ErrPasswordMismatch)
	assert.ErrorIs(t, VerifyPassword("anything", ""), ErrPasswordMismatch)
}
