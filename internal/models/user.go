package models

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role names carried in access tokens
const (
	RoleMember  = "Member"
	RoleManager = "Manager"
	RoleAdmin   = "Admin"
)

// User is an account stored in the SQL database
type User struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	Username         string     `json:"username" gorm:"size:20;uniqueIndex;not null"`
	Email            string     `json:"email" gorm:"uniqueIndex;not null"`
	Password         string     `json:"-" gorm:"not null"` // bcrypt hash
	Roles            []string   `json:"roles" gorm:"serializer:json"`
	Active           bool       `json:"active" gorm:"not null"`
	ResetToken       *string    `json:"-" gorm:"index"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,password"`
	Roles    []string `json:"roles,omitempty"`
}

type UpdateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Roles    []string `json:"roles" validate:"required,min=1"`
	Active   *bool    `json:"active" validate:"required"`
	Password string   `json:"password,omitempty" validate:"omitempty,password"`
}

// Identity is the verified caller resolved by the auth middleware
type Identity struct {
	ID       uint     `json:"_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// AccessClaims is the payload of a short-lived access token
type AccessClaims struct {
	UserInfo Identity `json:"UserInfo"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of the refresh-token cookie
type RefreshClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Roles: u.Roles}
}
