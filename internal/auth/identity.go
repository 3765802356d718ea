package auth

import (
	"errors"
	"strings"

	"salon-ledger/internal/models"
	"salon-ledger/internal/storage"
)

// Role is the closed set of identity kinds. It is resolved once at
// authentication time; authorization checks never compare key strings.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleEmployee Role = "employee"
)

// ErrNoMatch is returned when a login key resolves to no identity. Callers
// must report it generically, without revealing which keys exist.
var ErrNoMatch = errors.New("auth: no identity matches key")

// Identity is a resolved login. The zero value is unauthenticated.
type Identity struct {
	Role     Role
	Name     string
	Position string
	Employee *models.Employee // nil for the owner
}

// Authenticated reports whether the identity was resolved from a login.
func (id Identity) Authenticated() bool { return id.Role != "" }

// IsOwner reports whether this is the administrative identity.
func (id Identity) IsOwner() bool { return id.Role == RoleOwner }

// EmployeeID returns the owning employee's ID, or 0 for the owner.
func (id Identity) EmployeeID() int64 {
	if id.Employee == nil {
		return 0
	}
	return id.Employee.ID
}

// Resolver maps a presented login key to an identity. The same code path
// serves both the live login preview and the committing login, so what is
// displayed always matches what would authenticate.
type Resolver struct {
	db        *storage.DB
	ownerKey  string
	ownerName string
}

// NewResolver creates a resolver. ownerKey is the reserved owner login key.
func NewResolver(db *storage.DB, ownerKey, ownerName string) *Resolver {
	return &Resolver{db: db, ownerKey: ownerKey, ownerName: ownerName}
}

// Resolve matches a candidate key, trimmed of surrounding whitespace,
// against the owner key and then the employee table. The match is exact
// and case-sensitive. It has no side effects.
func (r *Resolver) Resolve(key string) (Identity, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Identity{}, ErrNoMatch
	}

	if key == r.ownerKey {
		return r.Owner(), nil
	}

	emp, err := r.db.GetEmployeeByLoginKey(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Identity{}, ErrNoMatch
		}
		return Identity{}, err
	}

	return EmployeeIdentity(emp), nil
}

// Owner returns the administrative identity.
func (r *Resolver) Owner() Identity {
	return Identity{Role: RoleOwner, Name: r.ownerName, Position: "Owner"}
}

// EmployeeIdentity wraps an employee record as an identity.
func EmployeeIdentity(emp *models.Employee) Identity {
	return Identity{Role: RoleEmployee, Name: emp.Name, Position: emp.Position, Employee: emp}
}
