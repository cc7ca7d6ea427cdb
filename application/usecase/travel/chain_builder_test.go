package travel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "github.com/tripdesk/tripdesk/domain/error"
	"github.com/tripdesk/tripdesk/domain/entity"
	"github.com/tripdesk/tripdesk/domain/valueobject"
	"github.com/tripdesk/tripdesk/infrastructure/adapter/memory"
	"github.com/tripdesk/tripdesk/infrastructure/service/logger"
)

func emp(email, manager, level string) *entity.Employee {
	return entity.NewEmployee(email, email, "", manager, level)
}

type brokenDirectory struct{}

func (brokenDirectory) Lookup(ctx context.Context, email string) (*entity.Employee, error) {
	return nil, errors.New("connection refused")
}

// failAfter serves lookups from a directory until the named email is requested.
type failAfter struct {
	*memory.EmployeeRepository
	failOn string
}

func (d failAfter) Lookup(ctx context.Context, email string) (*entity.Employee, error) {
	if email == d.failOn {
		return nil, errors.New("timeout")
	}
	return d.EmployeeRepository.Lookup(ctx, email)
}

func policyOf(p valueobject.ApprovalPolicy) *valueobject.ApprovalPolicy { return &p }

func emails(chain entity.ApprovalChain) []string {
	out := make([]string, 0, len(chain))
	for _, entry := range chain {
		out = append(out, entry.Email)
	}
	return out
}

func TestChainBuilderBuild(t *testing.T) {
	deepChain := []*entity.Employee{emp("e0@x.com", "e1@x.com", "6A")}
	for i := 1; i <= 12; i++ {
		deepChain = append(deepChain, emp(fmt.Sprintf("e%d@x.com", i), fmt.Sprintf("e%d@x.com", i+1), "5A"))
	}

	tests := []struct {
		name      string
		employees []*entity.Employee
		policy    *valueobject.ApprovalPolicy
		requester string
		want      []string
	}{
		{
			name: "stops at first terminal level",
			employees: []*entity.Employee{
				emp("dina@x.com", "citra@x.com", "5B"),
				emp("citra@x.com", "budi@x.com", "4A"),
				emp("budi@x.com", "ana@x.com", "3B"),
				emp("ana@x.com", "", "2A"),
			},
			requester: "DINA@x.com",
			want:      []string{"citra@x.com", "budi@x.com"},
		},
		{
			name: "terminal direct manager",
			employees: []*entity.Employee{
				emp("dina@x.com", "budi@x.com", "5B"),
				emp("budi@x.com", "ana@x.com", "3A"),
			},
			requester: "dina@x.com",
			want:      []string{"budi@x.com"},
		},
		{
			name: "top of tree without terminal level",
			employees: []*entity.Employee{
				emp("dina@x.com", "citra@x.com", "5B"),
				emp("citra@x.com", "", "4A"),
			},
			requester: "dina@x.com",
			want:      []string{"citra@x.com"},
		},
		{
			name:      "unknown requester",
			requester: "ghost@x.com",
			want:      []string{},
		},
		{
			name:      "requester without manager",
			employees: []*entity.Employee{emp("ceo@x.com", "", "1A")},
			requester: "ceo@x.com",
			want:      []string{},
		},
		{
			name: "missing manager record truncates",
			employees: []*entity.Employee{
				emp("dina@x.com", "citra@x.com", "5B"),
				emp("citra@x.com", "gone@x.com", "4A"),
			},
			requester: "dina@x.com",
			want:      []string{"citra@x.com"},
		},
		{
			name:      "missing direct manager gives empty chain",
			employees: []*entity.Employee{emp("dina@x.com", "gone@x.com", "5B")},
			requester: "dina@x.com",
			want:      []string{},
		},
		{
			name: "two person cycle",
			employees: []*entity.Employee{
				emp("a@x.com", "b@x.com", "5A"),
				emp("b@x.com", "a@x.com", "4A"),
			},
			requester: "a@x.com",
			want:      []string{"b@x.com", "a@x.com"},
		},
		{
			name:      "self reference",
			employees: []*entity.Employee{emp("a@x.com", "a@x.com", "5A")},
			requester: "a@x.com",
			want:      []string{"a@x.com"},
		},
		{
			name:      "depth cap",
			employees: deepChain,
			requester: "e0@x.com",
			want: []string{
				"e1@x.com", "e2@x.com", "e3@x.com", "e4@x.com", "e5@x.com",
				"e6@x.com", "e7@x.com", "e8@x.com", "e9@x.com", "e10@x.com",
			},
		},
		{
			name: "custom terminal levels",
			employees: []*entity.Employee{
				emp("dina@x.com", "citra@x.com", "5B"),
				emp("citra@x.com", "budi@x.com", "4A"),
				emp("budi@x.com", "", "3B"),
			},
			policy:    policyOf(valueobject.NewApprovalPolicy([]string{"4A"}, 0, nil)),
			requester: "dina@x.com",
			want:      []string{"citra@x.com"},
		},
		{
			name:      "custom length",
			employees: deepChain,
			policy:    policyOf(valueobject.NewApprovalPolicy(nil, 3, nil)),
			requester: "e0@x.com",
			want:      []string{"e1@x.com", "e2@x.com", "e3@x.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := valueobject.DefaultApprovalPolicy()
			if tt.policy != nil {
				policy = *tt.policy
			}
			builder := NewChainBuilder(memory.NewEmployeeRepository(tt.employees...), policy, nil)

			chain, err := builder.Build(context.Background(), tt.requester)
			require.NoError(t, err)
			assert.Equal(t, tt.want, emails(chain))
			for _, entry := range chain {
				assert.False(t, entry.Approved)
			}
		})
	}
}

func TestChainBuilderEntries(t *testing.T) {
	directory := memory.NewEmployeeRepository(
		emp("dina@x.com", "citra@x.com", "5B"),
		&entity.Employee{Email: "citra@x.com", Name: "Citra", EmployeeNumber: "E-7", ManagerEmail: "budi@x.com"},
		emp("budi@x.com", "", "3C"),
	)
	builder := NewChainBuilder(directory, valueobject.DefaultApprovalPolicy(), nil)

	first, err := builder.Build(context.Background(), "dina@x.com")
	require.NoError(t, err)
	second, err := builder.Build(context.Background(), "dina@x.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	assert.Equal(t, entity.ApprovalChainEntry{
		Email:          "citra@x.com",
		Name:           "Citra",
		ImpactLevel:    entity.UnknownImpactLevel,
		EmployeeNumber: "E-7",
	}, first[0])
}

func TestChainBuilderDirectoryFailure(t *testing.T) {
	builder := NewChainBuilder(brokenDirectory{}, valueobject.DefaultApprovalPolicy(), nil)
	_, err := builder.Build(context.Background(), "dina@x.com")
	assert.ErrorIs(t, err, apperror.ErrDirectoryLookupFailed("", nil))

	partial := failAfter{
		EmployeeRepository: memory.NewEmployeeRepository(
			emp("dina@x.com", "citra@x.com", "5B"),
			emp("citra@x.com", "budi@x.com", "4A"),
		),
		failOn: "budi@x.com",
	}
	builder = NewChainBuilder(partial, valueobject.DefaultApprovalPolicy(), nil)
	chain, err := builder.Build(context.Background(), "dina@x.com")
	assert.Nil(t, chain)
	assert.ErrorIs(t, err, apperror.ErrDirectoryLookupFailed("", nil))
}

func TestChainBuilderWarnsWhenRequesterApprovesOwnTrip(t *testing.T) {
	tests := []struct {
		name      string
		employees []*entity.Employee
		requester string
		warned    bool
	}{
		{
			name:      "cycle back to requester",
			employees: []*entity.Employee{emp("a@x.com", "b@x.com", "5A"), emp("b@x.com", "a@x.com", "4A")},
			requester: "a@x.com",
			warned:    true,
		},
		{
			name:      "self reference",
			employees: []*entity.Employee{emp("a@x.com", "a@x.com", "5A")},
			requester: "A@x.com",
			warned:    true,
		},
		{
			name:      "ordinary chain",
			employees: []*entity.Employee{emp("a@x.com", "b@x.com", "5A"), emp("b@x.com", "", "3A")},
			requester: "a@x.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.NewStructuredLogger(logger.LoggerConfig{Level: "warn", Format: "json", Output: &buf})
			builder := NewChainBuilder(memory.NewEmployeeRepository(tt.employees...), valueobject.DefaultApprovalPolicy(), log)

			chain, err := builder.Build(context.Background(), tt.requester)
			require.NoError(t, err)
			assert.Equal(t, tt.warned, chain.Contains(tt.requester))
			if tt.warned {
				assert.Contains(t, buf.String(), "Requester is an approver in their own chain")
			} else {
				assert.NotContains(t, buf.String(), "own chain")
			}
		})
	}
}
