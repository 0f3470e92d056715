package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents an account holder
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Password        string     `json:"-"` // Password hash is never exposed in JSON
	IsActive        bool       `json:"is_active"`
	IsAdmin         bool       `json:"is_admin"`
	IsPro           bool       `json:"is_pro"`
	FreeUsageCount  int        `json:"free_usage_count"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HashPassword hashes a plaintext password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ValidatePassword checks if the provided password matches the user's password hash
func (u *User) ValidatePassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Verified reports whether the account's email address has been confirmed.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
