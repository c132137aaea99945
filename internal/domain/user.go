package domain

import "time"

// Role determines what a user may do with a ticket.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleTechnician Role = "TECHNICIAN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleTechnician, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r belongs to ADMIN or SUPERVISOR.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// User is a reference to an account managed outside this service.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns "first last".
func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Actor is the authenticated caller of a ticket operation.
type Actor struct {
	ID   string
	Role Role
}

// TechnicianLoad pairs an active technician with their active ticket count.
type TechnicianLoad struct {
	Technician  User
	ActiveCount int
}
