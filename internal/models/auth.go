package models

import "time"

const (
	FirestoreUsersCollection = "users"
)

// Role is the navigation branch a signed-in user is allowed into.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// RoleFromAdminFlag converts the stored isAdmin flag into a Role.
func RoleFromAdminFlag(isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	return RoleRegular
}

// UserRecord is a document of the users collection. The document ID is the email address.
//
// Password holds the digest produced by the configured hasher, never the plaintext. It must not leave
// the repository and auth layers; use Profile to obtain the client-safe view.
type UserRecord struct {
	Email       string    `json:"email" mapstructure:"email" firestore:"email"`
	Name        string    `json:"name" mapstructure:"name" firestore:"name"`
	Password    string    `json:"-" mapstructure:"password" firestore:"password"`
	IsAdmin     bool      `json:"isAdmin" mapstructure:"isAdmin" firestore:"isAdmin"`
	CreatedAt   time.Time `json:"createdAt" mapstructure:"createdAt" firestore:"createdAt"`
	DateOfBirth time.Time `json:"dateOfBirth,omitempty" mapstructure:"dateOfBirth" firestore:"dateOfBirth"`
}

// Profile strips the password digest and returns the CurrentUser view of the record.
func (u *UserRecord) Profile() *CurrentUser {
	return &CurrentUser{
		Email:       u.Email,
		Name:        u.Name,
		Role:        RoleFromAdminFlag(u.IsAdmin),
		CreatedAt:   u.CreatedAt,
		DateOfBirth: u.DateOfBirth,
	}
}

// CurrentUser is the authenticated user as exposed to the presentation layer.
type CurrentUser struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	DateOfBirth time.Time `json:"dateOfBirth,omitempty"`
}

// IsAdmin reports whether the user may mount the admin branch.
func (u *CurrentUser) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginRequest is the parameter struct for the Login function.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the parameter struct for the Register function.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}
