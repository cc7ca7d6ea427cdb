package orgchart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/infrastructure/adapter/memory"
	"github.com/tripdesk/tripdesk/infrastructure/service/password"
)

const sample = `
employees:
  - email: Ana@Example.com
    name: Ana Putri
    employee_number: E-100
    manager: budi@example.com
    impact_level: 5A
    password: Secret123!
  - email: budi@example.com
    name: Budi Santoso
    impact_level: 3B
    role: POC
`

func TestParse(t *testing.T) {
	records, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "ana@example.com", records[0].Email)
	assert.Equal(t, "budi@example.com", records[0].Manager)
	assert.Equal(t, entity.RoleEmployee, records[0].Role)
	assert.Equal(t, entity.RolePOC, records[1].Role)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing email", "employees:\n  - name: X\n", "email is required"},
		{"missing name", "employees:\n  - email: x@example.com\n", "name is required"},
		{"duplicate", "employees:\n  - {email: x@example.com, name: X}\n  - {email: X@example.com, name: Y}\n", "duplicate email"},
		{"bad role", "employees:\n  - {email: x@example.com, name: X, role: owner}\n", "unknown role"},
		{"bad yaml", "employees: [", "decode org chart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestSeed(t *testing.T) {
	records, err := Parse([]byte(sample))
	require.NoError(t, err)

	repo := memory.NewEmployeeRepository()
	hasher := password.NewBcryptPasswordService(4)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	n, err := Seed(context.Background(), repo, hasher, records, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ana, err := repo.Lookup(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "5A", ana.ImpactLevel)
	assert.NoError(t, hasher.ComparePassword(ana.PasswordHash, "Secret123!"))

	budi, err := repo.Lookup(context.Background(), "budi@example.com")
	require.NoError(t, err)
	assert.Empty(t, budi.PasswordHash)
	assert.False(t, budi.HasManager())
}
