package models

import "time"

type User struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	TokenHash string    `json:"-"` // Not exposed in API responses
}
