package model

import "time"

// Role distinguishes exam takers from administrators.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
)

// User is a row owned by the auth collaborator. The exam core only reads the
// display fields (name, email, college) when joining results and progress.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	College      string    `json:"college"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Participant holds the denormalized display fields shown on admin views.
type Participant struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	College string `json:"college"`
}
