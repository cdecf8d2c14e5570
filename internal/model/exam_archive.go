package model

import (
	"time"

	"github.com/google/uuid"
)

// ArchiveRow is a detached per-participant snapshot. It holds copies of the
// display fields, never a reference back to the user or the result.
type ArchiveRow struct {
	UserName         string  `json:"userName"`
	UserEmail        string  `json:"userEmail"`
	UserCollege      string  `json:"userCollege"`
	TotalCorrect     int     `json:"totalCorrect"`
	TotalQuestions   int     `json:"totalQuestions"`
	Accuracy         float64 `json:"accuracy"`
	TimeTakenSeconds int64   `json:"timeTakenSeconds"`
	Rank             int     `json:"rank"`
}

// ExamArchive is an immutable snapshot of every result present at reset time.
type ExamArchive struct {
	ID                uuid.UUID    `json:"id"`
	Label             string       `json:"label"`
	ArchivedAt        time.Time    `json:"archivedAt"`
	TotalParticipants int          `json:"totalParticipants"`
	Results           []ArchiveRow `json:"results"`
}

// ResetExamRequest is the optional payload of POST /exam/reset.
type ResetExamRequest struct {
	Label string `json:"label" binding:"max=200"`
}

// ResetExamResponse reports what a reset archived.
type ResetExamResponse struct {
	ArchivedCount int       `json:"archivedCount"`
	ArchiveID     uuid.UUID `json:"archiveId"`
	Message       string    `json:"message"`
}
