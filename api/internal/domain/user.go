package domain

import "time"

// User is a persisted registration.
type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// RegistrationRequest is the raw signup form as submitted.
type RegistrationRequest struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}
