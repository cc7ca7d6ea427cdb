package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// EmployeeRepository is an in-process org directory.
type EmployeeRepository struct {
	mu        sync.RWMutex
	employees map[string]entity.Employee
}

var _ outbound.EmployeeRepository = (*EmployeeRepository)(nil)

func NewEmployeeRepository(employees ...*entity.Employee) *EmployeeRepository {
	r := &EmployeeRepository{employees: make(map[string]entity.Employee, len(employees))}
	for _, e := range employees {
		r.put(e)
	}
	return r
}

func (r *EmployeeRepository) Lookup(ctx context.Context, email string) (*entity.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.employees[entity.NormalizeEmail(email)]
	if !ok {
		return nil, outbound.ErrEmployeeNotFound
	}
	return &e, nil
}

// Upsert keeps the stored password hash when employee carries none.
func (r *EmployeeRepository) Upsert(ctx context.Context, employee *entity.Employee) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.put(employee)
	return nil
}

func (r *EmployeeRepository) List(ctx context.Context, offset, limit int) ([]*entity.Employee, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	r.mu.RLock()
	all := make([]*entity.Employee, 0, len(r.employees))
	for _, e := range r.employees {
		e := e
		all = append(all, &e)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	return paginate(all, offset, limit), len(all), nil
}

func (r *EmployeeRepository) put(employee *entity.Employee) {
	e := *employee
	e.Email = entity.NormalizeEmail(e.Email)
	e.ManagerEmail = entity.NormalizeEmail(e.ManagerEmail)
	r.mu.Lock()
	if prev, ok := r.employees[e.Email]; ok && e.PasswordHash == "" {
		e.PasswordHash = prev.PasswordHash
	}
	r.employees[e.Email] = e
	r.mu.Unlock()
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
