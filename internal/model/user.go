// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// RoleUpdate is the body of an admin's role change.
type RoleUpdate struct {
	Role Role `json:"role" validate:"required,oneof=admin user"`
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the public projection of an account. It never carries secret
// material, so it is safe to hand to the UI or write to logs.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// Key returns the primary key of the users collection.
func (u User) Key() string { return u.ID }

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// StoredUser is the persisted variant of User. The embedded User keeps the
// JSON document flat, so "email" and "role" sit at the top level where the
// collection indexes expect them.
type StoredUser struct {
	User
	PasswordHash string `json:"passwordHash"`
	Salt         string `json:"salt"`
}

// Public strips the password hash and salt.
func (u StoredUser) Public() User { return u.User }

// NormalizeEmail lower-cases and trims an address. Emails are unique
// case-insensitively, so every lookup and write goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserPatch is a partial update of a StoredUser. Nil fields are left alone.
type UserPatch struct {
	Name         *string
	Role         *Role
	LastLoginAt  *time.Time
	PasswordHash *string
	Salt         *string
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *StoredUser) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.LastLoginAt != nil {
		t := *p.LastLoginAt
		u.LastLoginAt = &t
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Salt != nil {
		u.Salt = *p.Salt
	}
}

// UserStatistics summarizes the user base for the admin dashboard.
type UserStatistics struct {
	TotalUsers    int `json:"totalUsers"`
	AdminUsers    int `json:"adminUsers"`
	RegularUsers  int `json:"regularUsers"`
	RecentSignups int `json:"recentSignups"`
	ActiveUsers   int `json:"activeUsers"`
}
