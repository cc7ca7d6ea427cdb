package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// EmployeeRepository reads and writes the employees table, which doubles as
// the org directory.
type EmployeeRepository struct {
	db *sql.DB
}

var _ outbound.EmployeeRepository = (*EmployeeRepository)(nil)

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeColumns = `email, name, employee_number, manager_email, impact_level, department, role, password_hash, created_at, updated_at`

func (r *EmployeeRepository) Lookup(ctx context.Context, email string) (*entity.Employee, error) {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return nil, outbound.ErrEmployeeNotFound
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email = $1 LIMIT 1`
	employee, err := scanEmployee(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, outbound.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up employee: %w", err)
	}
	return employee, nil
}

// Upsert keeps the stored password hash when employee carries none.
func (r *EmployeeRepository) Upsert(ctx context.Context, employee *entity.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			employee_number = EXCLUDED.employee_number,
			manager_email = EXCLUDED.manager_email,
			impact_level = EXCLUDED.impact_level,
			department = EXCLUDED.department,
			role = EXCLUDED.role,
			password_hash = COALESCE(NULLIF(EXCLUDED.password_hash, ''), employees.password_hash),
			updated_at = EXCLUDED.updated_at
	`
	role := employee.Role
	if role == "" {
		role = entity.RoleEmployee
	}
	_, err := r.db.ExecContext(ctx, query,
		entity.NormalizeEmail(employee.Email),
		employee.Name,
		employee.EmployeeNumber,
		nullString(entity.NormalizeEmail(employee.ManagerEmail)),
		employee.ImpactLevel,
		employee.Department,
		role,
		employee.PasswordHash,
		employee.CreatedAt,
		employee.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}

func (r *EmployeeRepository) List(ctx context.Context, offset, limit int) ([]*entity.Employee, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM employees`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count employees: %w", err)
	}

	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY email LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var employees []*entity.Employee
	for rows.Next() {
		employee, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, employee)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, total, nil
}

func scanEmployee(row rowScanner) (*entity.Employee, error) {
	var (
		e            entity.Employee
		managerEmail sql.NullString
	)
	err := row.Scan(
		&e.Email,
		&e.Name,
		&e.EmployeeNumber,
		&managerEmail,
		&e.ImpactLevel,
		&e.Department,
		&e.Role,
		&e.PasswordHash,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ManagerEmail = managerEmail.String
	return &e, nil
}
