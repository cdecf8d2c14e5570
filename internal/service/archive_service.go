package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cgpaplus/exam-core/internal/config"
	"github.com/cgpaplus/exam-core/internal/metrics"
	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Archive errors.
var (
	ErrNothingToArchive = errors.New("no completed results to archive")
	ErrArchiveNotFound  = errors.New("archive not found")
	ErrResetInProgress  = errors.New("another reset is in progress")
)

// ArchiveService snapshots the completed results and clears live state.
type ArchiveService struct {
	results  ResultStore
	archives ArchiveStore
	locker   Locker
	lockTTL  time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger
}

// NewArchiveService creates a new ArchiveService.
func NewArchiveService(results ResultStore, archives ArchiveStore, locker Locker, lockTTL time.Duration, m *metrics.Metrics) *ArchiveService {
	return &ArchiveService{
		results:  results,
		archives: archives,
		locker:   locker,
		lockTTL:  lockTTL,
		metrics:  m,
		now:      time.Now,
		log:      log.With().Str("component", "archive_service").Logger(),
	}
}

// Reset archives every completed result in rank order, then removes those
// results and all progress rows. Only one reset runs at a time.
func (s *ArchiveService) Reset(ctx context.Context, label string) (*model.ResetExamResponse, error) {
	release, ok, err := s.locker.Acquire(ctx, config.CacheKey.ExamResetLockKey(), s.lockTTL)
	if err != nil {
		s.metrics.Reset(metrics.OutcomeError)
		return nil, fmt.Errorf("acquire reset lock: %w", err)
	}
	if !ok {
		s.metrics.Reset(metrics.OutcomeRejected)
		return nil, ErrResetInProgress
	}
	defer release()

	completed, err := s.results.ListCompleted(ctx)
	if err != nil {
		s.metrics.Reset(metrics.OutcomeError)
		return nil, fmt.Errorf("list completed results: %w", err)
	}
	if len(completed) == 0 {
		s.metrics.Reset(metrics.OutcomeRejected)
		return nil, ErrNothingToArchive
	}

	now := s.now()
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Session " + now.Format("2006-01-02")
	}

	ranked := RankResults(completed)
	archive := &model.ExamArchive{
		ID:                uuid.New(),
		Label:             label,
		ArchivedAt:        now,
		TotalParticipants: len(ranked),
		Results:           make([]model.ArchiveRow, 0, len(ranked)),
	}
	userIDs := make([]int, 0, len(ranked))
	for _, r := range ranked {
		archive.Results = append(archive.Results, model.ArchiveRow{
			UserName:         r.Name,
			UserEmail:        r.Email,
			UserCollege:      r.College,
			TotalCorrect:     r.TotalCorrect,
			TotalQuestions:   r.TotalQuestions,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
			Rank:             r.Rank,
		})
		userIDs = append(userIDs, r.UserID)
	}

	if err := s.archives.ArchiveAndClear(ctx, archive, userIDs); err != nil {
		s.metrics.Reset(metrics.OutcomeError)
		return nil, fmt.Errorf("archive and clear: %w", err)
	}
	s.metrics.Reset(metrics.OutcomeOK)
	s.metrics.ArchivedRows(len(archive.Results))

	s.log.Info().
		Str("archive_id", archive.ID.String()).
		Str("label", archive.Label).
		Int("archived_count", len(archive.Results)).
		Msg("Exam results archived")

	return &model.ResetExamResponse{
		ArchivedCount: len(archive.Results),
		ArchiveID:     archive.ID,
		Message:       fmt.Sprintf("Archived %d results and reset for next batch", len(archive.Results)),
	}, nil
}

// GetHistory returns every archive, newest first.
func (s *ArchiveService) GetHistory(ctx context.Context) ([]model.ExamArchive, error) {
	archives, err := s.archives.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	if archives == nil {
		archives = []model.ExamArchive{}
	}
	return archives, nil
}

// DeleteArchive removes one archive.
func (s *ArchiveService) DeleteArchive(ctx context.Context, id uuid.UUID) error {
	if err := s.archives.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrArchiveNotFound
		}
		return fmt.Errorf("delete archive: %w", err)
	}
	s.log.Info().Str("archive_id", id.String()).Msg("Archive deleted")
	return nil
}
