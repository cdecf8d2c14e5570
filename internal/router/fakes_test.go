package router

import (
	"context"
	"sync"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/google/uuid"
)

// store is a single in-memory backend satisfying every service store.
type store struct {
	mu       sync.Mutex
	users    map[int]model.Participant
	results  map[int]model.ExamResult
	progress map[int]model.ExamProgress
	archives []model.ExamArchive
	locked   bool
}

func newStore() *store {
	return &store{
		users:    map[int]model.Participant{},
		results:  map[int]model.ExamResult{},
		progress: map[int]model.ExamProgress{},
	}
}

type resultStore struct{ *store }
type progressStore struct{ *store }
type archiveStore struct{ *store }
type locker struct{ *store }

func (s resultStore) GetByUser(_ context.Context, userID int) (*model.ExamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s resultStore) Create(_ context.Context, res *model.ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[res.UserID]; ok {
		return repository.ErrDuplicate
	}
	s.results[res.UserID] = *res
	return nil
}

func (s resultStore) ListCompleted(_ context.Context) ([]model.CompletedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CompletedResult
	for uid, r := range s.results {
		out = append(out, model.CompletedResult{
			Participant:      s.users[uid],
			UserID:           uid,
			TotalCorrect:     r.TotalCorrect,
			TotalQuestions:   r.TotalQuestions,
			Accuracy:         r.Accuracy,
			TimeTakenSeconds: r.TimeTakenSeconds,
			CompletedAt:      r.CompletedAt,
		})
	}
	return out, nil
}

func (s progressStore) Upsert(_ context.Context, p *model.ExamProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[p.UserID] = *p
	return nil
}

func (s progressStore) MarkCompleted(_ context.Context, userID, total int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.progress[userID]; ok {
		p.IsActive, p.AnsweredCount, p.LastUpdatedAt = false, total, at
		s.progress[userID] = p
	}
	return nil
}

func (s progressStore) ListActive(_ context.Context) ([]model.ActiveProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ActiveProgress
	for uid, p := range s.progress {
		if p.IsActive {
			out = append(out, model.ActiveProgress{Participant: s.users[uid], ExamProgress: p})
		}
	}
	return out, nil
}

func (s archiveStore) ArchiveAndClear(_ context.Context, a *model.ExamArchive, userIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives = append(s.archives, *a)
	for _, uid := range userIDs {
		delete(s.results, uid)
	}
	s.progress = map[int]model.ExamProgress{}
	return nil
}

func (s archiveStore) List(_ context.Context) ([]model.ExamArchive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ExamArchive, len(s.archives))
	copy(out, s.archives)
	return out, nil
}

func (s archiveStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.archives {
		if a.ID == id {
			s.archives = append(s.archives[:i], s.archives[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s locker) Acquire(_ context.Context, _ string, _ time.Duration) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return nil, false, nil
	}
	s.locked = true
	return func() {
		s.mu.Lock()
		s.locked = false
		s.mu.Unlock()
	}, true, nil
}
