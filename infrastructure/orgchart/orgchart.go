// Package orgchart loads organization directory fixtures from YAML.
package orgchart

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tripdesk/tripdesk/application/port/outbound"
	"github.com/tripdesk/tripdesk/domain/entity"
)

// File is the org.yaml document.
type File struct {
	Employees []Record `yaml:"employees"`
}

// Record is one directory entry. Password is plain text and only meant for
// local fixtures; it is hashed before storage.
type Record struct {
	Email          string `yaml:"email"`
	Name           string `yaml:"name"`
	EmployeeNumber string `yaml:"employee_number"`
	Manager        string `yaml:"manager"`
	ImpactLevel    string `yaml:"impact_level"`
	Department     string `yaml:"department"`
	Role           string `yaml:"role"`
	Password       string `yaml:"password"`
}

var validRoles = map[string]bool{
	entity.RoleEmployee: true,
	entity.RolePOC:      true,
	entity.RoleVendor:   true,
	entity.RoleAdmin:    true,
}

// Parse decodes and checks an org chart. Managers missing from the file are
// allowed; chain building truncates at them.
func Parse(data []byte) ([]Record, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode org chart: %w", err)
	}

	seen := make(map[string]bool, len(f.Employees))
	for i := range f.Employees {
		r := &f.Employees[i]
		r.Email = entity.NormalizeEmail(r.Email)
		r.Manager = entity.NormalizeEmail(r.Manager)
		r.Role = strings.ToLower(strings.TrimSpace(r.Role))
		if r.Role == "" {
			r.Role = entity.RoleEmployee
		}

		switch {
		case r.Email == "":
			return nil, fmt.Errorf("employee #%d: email is required", i+1)
		case strings.TrimSpace(r.Name) == "":
			return nil, fmt.Errorf("employee %s: name is required", r.Email)
		case seen[r.Email]:
			return nil, fmt.Errorf("employee %s: duplicate email", r.Email)
		case !validRoles[r.Role]:
			return nil, fmt.Errorf("employee %s: unknown role %q", r.Email, r.Role)
		}
		seen[r.Email] = true
	}
	return f.Employees, nil
}

func LoadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read org chart: %w", err)
	}
	return Parse(data)
}

// Employee converts the record, attaching an already computed password hash.
func (r Record) Employee(passwordHash string, now time.Time) *entity.Employee {
	e := entity.NewEmployee(r.Email, r.Name, r.EmployeeNumber, r.Manager, r.ImpactLevel)
	e.Department = strings.TrimSpace(r.Department)
	e.Role = r.Role
	e.PasswordHash = passwordHash
	e.CreatedAt = now
	e.UpdatedAt = now
	return e
}

// Seed upserts every record. Records without a password keep whatever hash is
// already stored.
func Seed(ctx context.Context, repo outbound.EmployeeRepository, hasher outbound.PasswordService, records []Record, now time.Time) (int, error) {
	for i, r := range records {
		var hash string
		if r.Password != "" {
			var err error
			if hash, err = hasher.HashPassword(r.Password); err != nil {
				return i, fmt.Errorf("hash password for %s: %w", r.Email, err)
			}
		}
		if err := repo.Upsert(ctx, r.Employee(hash, now)); err != nil {
			return i, fmt.Errorf("upsert %s: %w", r.Email, err)
		}
	}
	return len(records), nil
}
