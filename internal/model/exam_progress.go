package model

import "time"

// ExamProgress is the ephemeral per-user liveness row used by the admin monitor.
// It is advisory only and never consulted for grading.
type ExamProgress struct {
	UserID         int       `json:"userId"`
	AnsweredCount  int       `json:"answeredCount"`
	TotalQuestions int       `json:"totalQuestions"`
	CurrentSection string    `json:"currentSection"`
	CurrentRound   int       `json:"currentRound"`
	StartedAt      time.Time `json:"startedAt"`
	LastUpdatedAt  time.Time `json:"lastUpdatedAt"`
	IsActive       bool      `json:"isActive"`
}

// ActiveProgress is an active ExamProgress row joined with its owner's display fields.
type ActiveProgress struct {
	Participant
	ExamProgress
}

// UpdateProgressRequest is the payload of POST /exam/progress.
type UpdateProgressRequest struct {
	AnsweredCount  int        `json:"answeredCount" binding:"min=0"`
	CurrentSection string     `json:"currentSection" binding:"max=200"`
	CurrentRound   int        `json:"currentRound" binding:"min=0"`
	StartedAt      *time.Time `json:"startedAt"`
}

// ActiveParticipant is a live row of a participant still taking the exam.
type ActiveParticipant struct {
	Participant
	AnsweredCount  int     `json:"answeredCount"`
	TotalQuestions int     `json:"totalQuestions"`
	CurrentSection string  `json:"currentSection"`
	CurrentRound   int     `json:"currentRound"`
	ElapsedSeconds int64   `json:"elapsedSeconds"`
	Progress       float64 `json:"progress"`
	Status         string  `json:"status"`
}

// LiveView is the admin read model joining active progress with completed results.
type LiveView struct {
	Active         []ActiveParticipant `json:"active"`
	Completed      []RankedResult      `json:"completed"`
	ActiveCount    int                 `json:"activeCount"`
	CompletedCount int                 `json:"completedCount"`
}

const (
	ParticipantStatusActive    = "active"
	ParticipantStatusCompleted = "completed"
)
