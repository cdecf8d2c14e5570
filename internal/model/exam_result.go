package model

import "time"

// SubmittedAnswer is a single (question, letter) pair as sent by the client.
type SubmittedAnswer struct {
	QuestionID     string `json:"questionId" binding:"required,max=100"`
	SelectedOption string `json:"selectedOption" binding:"required,max=8"`
}

// ExamResult is the durable, one-per-user outcome of a submitted exam.
type ExamResult struct {
	ID               int64             `json:"id"`
	UserID           int               `json:"userId"`
	Answers          []SubmittedAnswer `json:"answers"`
	TotalCorrect     int               `json:"totalCorrect"`
	TotalQuestions   int               `json:"totalQuestions"`
	Accuracy         float64           `json:"accuracy"`
	TimeTakenSeconds int64             `json:"timeTakenSeconds"`
	StartedAt        time.Time         `json:"startedAt"`
	CompletedAt      time.Time         `json:"completedAt"`
}

// ResultSummary is the score view of an ExamResult returned to its owner.
type ResultSummary struct {
	TotalCorrect     int     `json:"totalCorrect"`
	TotalQuestions   int     `json:"totalQuestions"`
	Accuracy         float64 `json:"accuracy"`
	TimeTakenSeconds int64   `json:"timeTakenSeconds"`
}

// Summary projects the result onto its owner-facing summary.
func (r *ExamResult) Summary() ResultSummary {
	return ResultSummary{
		TotalCorrect:     r.TotalCorrect,
		TotalQuestions:   r.TotalQuestions,
		Accuracy:         r.Accuracy,
		TimeTakenSeconds: r.TimeTakenSeconds,
	}
}

// CompletedResult is an ExamResult joined with its owner's display fields.
type CompletedResult struct {
	Participant
	UserID           int       `json:"userId"`
	TotalCorrect     int       `json:"totalCorrect"`
	TotalQuestions   int       `json:"totalQuestions"`
	Accuracy         float64   `json:"accuracy"`
	TimeTakenSeconds int64     `json:"timeTakenSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}

// RankedResult is a CompletedResult with its view-time rank.
type RankedResult struct {
	Rank int `json:"rank"`
	CompletedResult
	Status string `json:"status"`
}

// LeaderboardEntry is the admin leaderboard row. Email is left out.
type LeaderboardEntry struct {
	Rank             int       `json:"rank"`
	Name             string    `json:"name"`
	College          string    `json:"college"`
	TotalCorrect     int       `json:"totalCorrect"`
	TotalQuestions   int       `json:"totalQuestions"`
	Accuracy         float64   `json:"accuracy"`
	TimeTakenSeconds int64     `json:"timeTakenSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
}

// SubmitExamRequest is the payload of POST /exam/submit.
// An empty answers array is accepted; a missing one is not.
type SubmitExamRequest struct {
	Answers   []SubmittedAnswer `json:"answers" binding:"required,dive"`
	StartedAt *time.Time        `json:"startedAt" binding:"required"`
}

// SubmitExamResponse is returned after a successful submission.
type SubmitExamResponse struct {
	ResultSummary
	Message string `json:"message"`
}

// ExamStatusResponse tells a user whether they already took the exam.
type ExamStatusResponse struct {
	Taken  bool           `json:"taken"`
	Result *ResultSummary `json:"result"`
}
