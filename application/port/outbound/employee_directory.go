package outbound

import (
	"context"
	"errors"

	"github.com/tripdesk/tripdesk/domain/entity"
)

var ErrEmployeeNotFound = errors.New("employee not found")

// OrgDirectory resolves employees by email. Lookup returns ErrEmployeeNotFound
// when the directory has no record; any other error is an I/O failure.
type OrgDirectory interface {
	Lookup(ctx context.Context, email string) (*entity.Employee, error)
}

// EmployeeRepository is the writable side of the directory used by seeding and login.
type EmployeeRepository interface {
	OrgDirectory
	Upsert(ctx context.Context, employee *entity.Employee) error
	List(ctx context.Context, offset, limit int) ([]*entity.Employee, int, error)
}
