package domain

import "time"

// UserRole enumerates the roles an agent account can hold.
type UserRole string

const (
	RoleAgent   UserRole = "agent"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// User is a support agent a query can be assigned to. The triage core only
// selects users; it never creates or modifies them.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      UserRole
	TeamID    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
