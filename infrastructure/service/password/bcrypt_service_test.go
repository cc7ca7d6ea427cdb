package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordService_RoundTrip(t *testing.T) {
	svc := NewBcryptPasswordService(bcrypt.MinCost)

	hash, err := svc.HashPassword("Secret123!")
	require.NoError(t, err)
	assert.NotEqual(t, "Secret123!", hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.NoError(t, svc.ComparePassword(hash, "Secret123!"))
	assert.ErrorIs(t, svc.ComparePassword(hash, "Secret124!"), ErrMismatch)
}

func TestBcryptPasswordService_Errors(t *testing.T) {
	svc := NewBcryptPasswordService(bcrypt.MinCost)

	_, err := svc.HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)

	assert.ErrorIs(t, svc.ComparePassword("", "Secret123!"), ErrNoStoredHash)
	assert.ErrorIs(t, svc.ComparePassword("$2a$04$abc", ""), ErrEmptyPassword)

	err = svc.ComparePassword("not-a-bcrypt-hash", "Secret123!")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}

func TestNewBcryptPasswordService_Cost(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{1, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewBcryptPasswordService(tt.in).Cost(), "cost %d", tt.in)
	}
}
