package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateAndVerifyToken(t *testing.T) {
	tm := NewTokenManager([]byte("test-signing-key"))

	token, err := tm.CreateToken(42, time.Hour)
	assert.NoError(t, err, "expected no error creating token")
	assert.NotEmpty(t, token, "expected a signed token")

	userId, err := tm.VerifyToken(token)
	assert.NoError(t, err, "expected token to verify")
	assert.Equal(t, 42, userId, "expected user id claim to round-trip")
}

func TestVerifyToken_Invalid(t *testing.T) {
	tm := NewTokenManager([]byte("test-signing-key"))

	tcases := []struct {
		name  string
		token string
	}{
		{
			name:  "garbage token",
			token: "not-a-token",
		},
		{
			name:  "empty token",
			token: "",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tm.VerifyToken(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken, "expected ErrInvalidToken")
		})
	}

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewTokenManager([]byte("other-key"))
		token, err := other.CreateToken(1, time.Hour)
		assert.NoError(t, err)

		_, err = tm.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "expected token signed with another key to fail")
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := tm.CreateToken(1, -time.Minute)
		assert.NoError(t, err)

		_, err = tm.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "expected expired token to fail")
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	assert.NoError(t, err, "expected no error hashing password")
	assert.NotEqual(t, "hunter2", hash, "expected hash to differ from plaintext")

	assert.True(t, VerifyPassword(hash, "hunter2"), "expected matching password to verify")
	assert.False(t, VerifyPassword(hash, "wrong"), "expected wrong password to fail")
}
