package entity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
)

func TestNewConversationMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		role    entity.AuthorRole
		wantErr bool
	}{
		{"valid", "  When do we leave?  ", entity.AuthorEmployee, false},
		{"max length", strings.Repeat("a", entity.MaxMessageLength), entity.AuthorPOC, false},
		{"empty", "   ", entity.AuthorEmployee, true},
		{"too long", strings.Repeat("a", entity.MaxMessageLength+1), entity.AuthorEmployee, true},
		{"unknown role", "hi", entity.AuthorRole("guest"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := entity.NewConversationMessage("m-1", "req-1", "Dina@Example.com", "Dina", tt.role, tt.body, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrInvalidRequest(""))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "dina@example.com", msg.AuthorEmail)
			assert.Equal(t, strings.TrimSpace(tt.body), msg.Body)
		})
	}
}

func TestNewSystemMessage(t *testing.T) {
	msg := entity.NewSystemMessage("m-1", "req-1", "Approved by Citra.", now)

	assert.Equal(t, entity.AuthorSystem, msg.Role)
	assert.Equal(t, entity.SystemActor, msg.AuthorEmail)
	assert.NoError(t, msg.Validate())
}

func TestAuthorRoleFor(t *testing.T) {
	req := newRequest(testChain())

	assert.Equal(t, entity.AuthorEmployee, entity.AuthorRoleFor(req, "dina@example.com", entity.RoleEmployee, false))
	assert.Equal(t, entity.AuthorManager, entity.AuthorRoleFor(req, "Citra@example.com", entity.RoleEmployee, false))
	assert.Equal(t, entity.AuthorPOC, entity.AuthorRoleFor(req, "travel@example.com", entity.RolePOC, true))
	assert.Equal(t, entity.AuthorVendor, entity.AuthorRoleFor(req, "bookings@agency.example", entity.RoleVendor, false))
}
