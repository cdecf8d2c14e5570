package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cgpaplus/exam-core/internal/grading"
	"github.com/cgpaplus/exam-core/internal/model"
)

// MonitorService builds the admin read models. It never writes.
type MonitorService struct {
	results  ResultStore
	progress ProgressStore
	now      func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(results ResultStore, progress ProgressStore) *MonitorService {
	return &MonitorService{results: results, progress: progress, now: time.Now}
}

// GetLiveView returns active participants, most answered first, and the
// ranked completed results. Both collections are fetched concurrently.
func (s *MonitorService) GetLiveView(ctx context.Context) (*model.LiveView, error) {
	var (
		active      []model.ActiveProgress
		completed   []model.CompletedResult
		activeErr   error
		completeErr error
		wg          sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		active, activeErr = s.progress.ListActive(ctx)
	}()
	go func() {
		defer wg.Done()
		completed, completeErr = s.results.ListCompleted(ctx)
	}()
	wg.Wait()

	if activeErr != nil {
		return nil, fmt.Errorf("list active progress: %w", activeErr)
	}
	if completeErr != nil {
		return nil, fmt.Errorf("list completed results: %w", completeErr)
	}

	now := s.now()
	view := &model.LiveView{
		Active:    make([]model.ActiveParticipant, 0, len(active)),
		Completed: RankResults(completed),
	}
	for _, a := range active {
		view.Active = append(view.Active, model.ActiveParticipant{
			Participant:    a.Participant,
			AnsweredCount:  a.AnsweredCount,
			TotalQuestions: a.TotalQuestions,
			CurrentSection: a.CurrentSection,
			CurrentRound:   a.CurrentRound,
			ElapsedSeconds: grading.ElapsedSeconds(a.StartedAt, now),
			Progress:       grading.Percent(a.AnsweredCount, a.TotalQuestions),
			Status:         model.ParticipantStatusActive,
		})
	}
	sort.SliceStable(view.Active, func(i, j int) bool {
		return view.Active[i].AnsweredCount > view.Active[j].AnsweredCount
	})

	view.ActiveCount = len(view.Active)
	view.CompletedCount = len(view.Completed)
	return view, nil
}

// GetLeaderboard returns the ranked completed results without emails.
func (s *MonitorService) GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	completed, err := s.results.ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list completed results: %w", err)
	}

	ranked := RankResults(completed)
	board := make([]model.LeaderboardEntry, 0, len(ranked))
	for _, r := range ranked {
		board = append(board, model.LeaderboardEntry{
			Rank:             r.Rank,
			Name:             r.Name,
			College:          r.College,
			TotalCorrect:     r.TotalCorrect,
			TotalQuestions:   r.TotalQuestions,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
			CompletedAt:      r.CompletedAt,
		})
	}
	return board, nil
}

// RankResults orders results by score descending, then time taken ascending,
// then completion time, and assigns 1-based ranks. The input is not modified.
func RankResults(results []model.CompletedResult) []model.RankedResult {
	sorted := make([]model.CompletedResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalCorrect != b.TotalCorrect {
			return a.TotalCorrect > b.TotalCorrect
		}
		if a.TimeTakenSeconds != b.TimeTakenSeconds {
			return a.TimeTakenSeconds < b.TimeTakenSeconds
		}
		return a.CompletedAt.Before(b.CompletedAt)
	})

	ranked := make([]model.RankedResult, len(sorted))
	for i, r := range sorted {
		ranked[i] = model.RankedResult{
			Rank:            i + 1,
			CompletedResult: r,
			Status:          model.ParticipantStatusCompleted,
		}
	}
	return ranked
}
