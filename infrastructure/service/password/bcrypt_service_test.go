package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordService(t *testing.T) {
	service := NewBcryptPasswordService(bcrypt.MinCost)

	t.Run("HashPassword", func(t *testing.T) {
		hash, err := service.HashPassword("test-password-123")
		require.NoError(t, err)
		assert.NotEmpty(t, hash)
		assert.NotEqual(t, "test-password-123", hash)
	})

	t.Run("HashEmptyPassword", func(t *testing.T) {
		_, err := service.HashPassword("")
		assert.Error(t, err)
	})

	t.Run("VerifyPassword", func(t *testing.T) {
		hash, err := service.HashPassword("test-password-123")
		require.NoError(t, err)

		ok, err := service.VerifyPassword("test-password-123", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("VerifyWrongPassword", func(t *testing.T) {
		hash, err := service.HashPassword("test-password-123")
		require.NoError(t, err)

		ok, err := service.VerifyPassword("wrong-password-456", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("VerifyEmptyInput", func(t *testing.T) {
		_, err := service.VerifyPassword("", "$2a$10$abc")
		assert.Error(t, err)
		_, err = service.VerifyPassword("password", "")
		assert.Error(t, err)
	})

	t.Run("VerifyCorruptHash", func(t *testing.T) {
		_, err := service.VerifyPassword("password", "not-a-bcrypt-hash")
		assert.Error(t, err)
	})
}

func TestNewBcryptPasswordService_OutOfRangeCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordService(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordService(99).cost)
}
