package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cgpaplus/exam-core/internal/grading"
	"github.com/cgpaplus/exam-core/internal/metrics"
	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrAlreadySubmitted is returned when the user already owns an ExamResult.
var ErrAlreadySubmitted = errors.New("exam already submitted")

// ExamSessionService owns the participant side of the exam: status,
// progress reporting and the one-shot submission.
type ExamSessionService struct {
	results  ResultStore
	progress ProgressStore
	key      *grading.AnswerKey
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService grading against key.
func NewExamSessionService(results ResultStore, progress ProgressStore, key *grading.AnswerKey, m *metrics.Metrics) *ExamSessionService {
	return &ExamSessionService{
		results:  results,
		progress: progress,
		key:      key,
		metrics:  m,
		now:      time.Now,
		log:      log.With().Str("component", "exam_session_service").Logger(),
	}
}

// GetStatus reports whether userID has a result. It has no side effects.
func (s *ExamSessionService) GetStatus(ctx context.Context, userID int) (*model.ExamStatusResponse, error) {
	res, err := s.results.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.ExamStatusResponse{Taken: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	summary := res.Summary()
	return &model.ExamStatusResponse{Taken: true, Result: &summary}, nil
}

// UpdateProgress overwrites the user's progress row. A lower answered count
// than the stored one is accepted as is.
func (s *ExamSessionService) UpdateProgress(ctx context.Context, userID int, req model.UpdateProgressRequest) error {
	now := s.now()

	p := &model.ExamProgress{
		UserID:         userID,
		AnsweredCount:  req.AnsweredCount,
		TotalQuestions: s.key.Len(),
		CurrentSection: req.CurrentSection,
		CurrentRound:   req.CurrentRound,
		StartedAt:      now,
		LastUpdatedAt:  now,
		IsActive:       true,
	}
	if p.CurrentRound == 0 {
		p.CurrentRound = 1
	}
	if req.StartedAt != nil {
		p.StartedAt = *req.StartedAt
	}

	if err := s.progress.Upsert(ctx, p); err != nil {
		s.metrics.ProgressUpdate(metrics.OutcomeError)
		return fmt.Errorf("upsert progress: %w", err)
	}
	s.metrics.ProgressUpdate(metrics.OutcomeOK)
	return nil
}

// Submit grades answers and stores the user's only result. Any second
// attempt, sequential or racing, fails with ErrAlreadySubmitted.
func (s *ExamSessionService) Submit(ctx context.Context, userID int, answers []model.SubmittedAnswer, startedAt time.Time) (*model.ExamResult, error) {
	// Fast path only. The unique constraint below is what actually guards.
	if _, err := s.results.GetByUser(ctx, userID); err == nil {
		s.metrics.Submission(metrics.OutcomeRejected)
		return nil, ErrAlreadySubmitted
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.metrics.Submission(metrics.OutcomeError)
		return nil, fmt.Errorf("check existing result: %w", err)
	}

	completedAt := s.now()
	score := s.key.Grade(answers)

	if answers == nil {
		answers = []model.SubmittedAnswer{}
	}
	res := &model.ExamResult{
		UserID:           userID,
		Answers:          answers,
		TotalCorrect:     score.TotalCorrect,
		TotalQuestions:   score.TotalQuestions,
		Accuracy:         score.Accuracy,
		TimeTakenSeconds: grading.ElapsedSeconds(startedAt, completedAt),
		StartedAt:        startedAt,
		CompletedAt:      completedAt,
	}

	if err := s.results.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.Submission(metrics.OutcomeRejected)
			return nil, ErrAlreadySubmitted
		}
		s.metrics.Submission(metrics.OutcomeError)
		return nil, fmt.Errorf("create result: %w", err)
	}
	s.metrics.Submission(metrics.OutcomeOK)

	// The result is durable at this point; a stale progress row only delays the monitor.
	if err := s.progress.MarkCompleted(ctx, userID, res.TotalQuestions, completedAt); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("failed to mark progress completed")
	}

	s.log.Info().
		Int("user_id", userID).
		Int("total_correct", res.TotalCorrect).
		Int64("time_taken_seconds", res.TimeTakenSeconds).
		Msg("Exam submitted")

	return res, nil
}
