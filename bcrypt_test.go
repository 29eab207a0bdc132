package authgate_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bastion-labs/authgate"
)

func TestHashPassword(t *testing.T) {
	t.Run("hash verifies against the original password", func(t *testing.T) {
		hash, err := authgate.HashPassword("s3cret")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
		assert.NoError(t, authgate.ComparePasswordAndHash("s3cret", hash))
	})

	t.Run("hashing is salted", func(t *testing.T) {
		a, err := authgate.HashPassword("s3cret")
		require.NoError(t, err)
		b, err := authgate.HashPassword("s3cret")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		_, err := authgate.HashPassword("")
		assert.Error(t, err)
	})
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := authgate.HashPassword("s3cret")
	require.NoError(t, err)

	t.Run("mismatch is a credential failure", func(t *testing.T) {
		err := authgate.ComparePasswordAndHash("wrong", hash)
		assert.ErrorIs(t, err, authgate.ErrBadCredentials)
	})

	t.Run("garbage hash is not a credential failure", func(t *testing.T) {
		err := authgate.ComparePasswordAndHash("s3cret", "not-a-bcrypt-hash")
		require.Error(t, err)
		assert.False(t, authgate.IsBadCredentials(err))
	})
}
