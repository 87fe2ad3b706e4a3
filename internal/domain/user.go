// Package domain contains the core business entities for VibeVault.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the playlist service.
package domain

// Role represents the access level of a user account.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "ROLE_USER"

	// RoleAdmin may mutate any playlist regardless of ownership.
	// Admin accounts are only created through the admin CLI, never the API.
	RoleAdmin Role = "ROLE_ADMIN"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered account.
// Users own playlists; the API never mutates or deletes users after registration.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Username is the globally unique username used for login and as the
	// token subject. Matching is case-sensitive.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never exposed in API responses; the backing column is named
	// "password" for schema compatibility but only ever holds a hash.
	PasswordHash string `json:"-"`

	// Role is the user's access level.
	Role Role `json:"role"`
}

// NewUser creates a User with the default role.
func NewUser(username, passwordHash string) *User {
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         RoleUser,
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
