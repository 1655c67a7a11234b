package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an authenticated admin.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Account is the stored credential record behind a User.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is the token pair issued on sign-in or refresh.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}
