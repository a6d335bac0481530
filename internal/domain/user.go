package domain

import "time"

// Role determines which views a user can reach
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupplier Role = "supplier"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSupplier
}

// User is the internal application user linked to an authentication identity
type User struct {
	ID        string    `json:"id" db:"id"`
	AuthID    string    `json:"auth_id" db:"auth_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AuthProvider names where an identity authenticates
type AuthProvider string

const (
	ProviderEmail  AuthProvider = "email"
	ProviderGoogle AuthProvider = "google"
)

// AuthIdentity is a set of sign-in credentials
type AuthIdentity struct {
	ID           string       `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	PasswordHash string       `json:"-" db:"password_hash"`
	Provider     AuthProvider `json:"provider" db:"provider"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
