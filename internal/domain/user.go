package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Role represents the permission level of a user
type Role string

const (
	RoleMember Role = "miembro"
	RoleOwner  Role = "propietario"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleOwner
}

const minPasswordLength = 6

// User is an account that can own, be assigned and comment on tasks.
// PasswordHash never leaves the API but is still visible to the audit
// snapshotter under the "password" name so it can be redacted there.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-" audit:"password"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewUser validates and builds a member account; the caller hashes the password
func NewUser(name, email, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEmail checks the address syntax
func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// IsOwner reports whether the user holds the owner role
func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

// UserFilter represents filters for listing users
type UserFilter struct {
	Role   *Role `json:"role,omitempty"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}
