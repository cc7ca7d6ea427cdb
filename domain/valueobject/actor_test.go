package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		raw     string
		want    Outcome
		wantErr bool
	}{
		{"Approved", OutcomeApproved, false},
		{" approved ", OutcomeApproved, false},
		{"approve", OutcomeApproved, false},
		{"REJECTED", OutcomeRejected, false},
		{"reject", OutcomeRejected, false},
		{"", "", true},
		{"maybe", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseOutcome(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOutcome)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewActor(t *testing.T) {
	actor := NewActor(" Dina@Example.COM ", " Dina ", "employee", false)

	assert.Equal(t, "dina@example.com", actor.Email)
	assert.Equal(t, "Dina (dina@example.com)", actor.Label())
	assert.Equal(t, "travel@example.com", NewActor("travel@example.com", "", "poc", true).Label())
}

func TestNewCredentials(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		password  string
		wantEmail string
		wantErr   error
	}{
		{"valid", " Dina@Example.com ", "Password123!", "dina@example.com", nil},
		{"bad email", "dina", "Password123!", "", ErrInvalidEmail},
		{"short password", "dina@example.com", "short", "", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCredentials(tt.email, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantEmail, c.Email())
			assert.Equal(t, tt.password, c.Password())
		})
	}
}
