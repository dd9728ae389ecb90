package auth

import "time"

// UserStatus enumerates account states.
type UserStatus string

const (
	UserStatusPending UserStatus = "PENDING"
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

// User represents a registered account holder.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	CPF             string     `json:"cpf"`
	Phone           string     `json:"phone"`
	PasswordHash    string     `json:"-"`
	Status          UserStatus `json:"status"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
