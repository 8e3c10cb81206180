package domain

import "time"

// Role is a named permission class governing operation and record access.
type Role string

// The four fixed roles. Reference rows are seeded once by migration.
const (
	RoleAdmin        Role = "admin"
	RoleDoctor       Role = "doctor"
	RoleReceptionist Role = "receptionist"
	RolePatient      Role = "patient"
)

// IsValid checks if the role is one of the enumerated values.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleReceptionist, RolePatient:
		return true
	}
	return false
}

// CanManageAppointments reports whether the role may create, update,
// or delete appointments.
func (r Role) CanManageAppointments() bool {
	return r == RoleAdmin || r == RoleReceptionist
}

// RoleRef is a role reference row with its human description.
type RoleRef struct {
	ID          string `json:"id"`
	Name        Role   `json:"name"`
	Description string `json:"description"`
}

// User represents a registered account. A user may hold several roles;
// behavior branches on the primary one (first assigned).
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PrimaryRole returns the first assigned role, or empty if none.
func (u *User) PrimaryRole() Role {
	if len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0]
}

// HasAnyRole reports whether the user holds at least one of the given roles.
func (u *User) HasAnyRole(roles ...Role) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}
