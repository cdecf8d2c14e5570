package service

import (
	"context"
	"sync"
	"time"

	"github.com/cgpaplus/exam-core/internal/model"
	"github.com/cgpaplus/exam-core/internal/repository"
	"github.com/google/uuid"
)

// memResults mimics exam_results with its unique user_id constraint.
type memResults struct {
	mu        sync.Mutex
	rows      map[int]model.ExamResult
	users     map[int]model.Participant
	nextID    int64
	createErr error
	// hideExisting makes GetByUser miss, forcing Create to hit the constraint.
	hideExisting bool
}

func newMemResults() *memResults {
	return &memResults{rows: map[int]model.ExamResult{}, users: map[int]model.Participant{}}
}

func (m *memResults) GetByUser(_ context.Context, userID int) (*model.ExamResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[userID]
	if !ok || m.hideExisting {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memResults) Create(_ context.Context, res *model.ExamResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.rows[res.UserID]; ok {
		return repository.ErrDuplicate
	}
	m.nextID++
	res.ID = m.nextID
	m.rows[res.UserID] = *res
	return nil
}

func (m *memResults) ListCompleted(_ context.Context) ([]model.CompletedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CompletedResult
	for uid, r := range m.rows {
		out = append(out, model.CompletedResult{
			Participant:      m.users[uid],
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

func (m *memResults) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// memProgress mimics exam_progress with an atomic upsert.
type memProgress struct {
	mu        sync.Mutex
	rows      map[int]model.ExamProgress
	users     map[int]model.Participant
	upsertErr error
	markErr   error
}

func newMemProgress() *memProgress {
	return &memProgress{rows: map[int]model.ExamProgress{}, users: map[int]model.Participant{}}
}

func (m *memProgress) Upsert(_ context.Context, p *model.ExamProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.rows[p.UserID] = *p
	return nil
}

func (m *memProgress) MarkCompleted(_ context.Context, userID, total int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markErr != nil {
		return m.markErr
	}
	p, ok := m.rows[userID]
	if !ok {
		return nil
	}
	p.IsActive = false
	p.AnsweredCount = total
	p.LastUpdatedAt = at
	m.rows[userID] = p
	return nil
}

func (m *memProgress) ListActive(_ context.Context) ([]model.ActiveProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ActiveProgress
	for uid, p := range m.rows {
		if p.IsActive {
			out = append(out, model.ActiveProgress{Participant: m.users[uid], ExamProgress: p})
		}
	}
	return out, nil
}

func (m *memProgress) get(userID int) (model.ExamProgress, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	return p, ok
}

// memArchives clears the sibling fakes the way the transaction does.
type memArchives struct {
	mu         sync.Mutex
	archives   []model.ExamArchive
	results    *memResults
	progress   *memProgress
	archiveErr error
}

func (m *memArchives) ArchiveAndClear(_ context.Context, a *model.ExamArchive, userIDs []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.archiveErr != nil {
		return m.archiveErr
	}
	m.archives = append(m.archives, *a)

	m.results.mu.Lock()
	for _, uid := range userIDs {
		delete(m.results.rows, uid)
	}
	m.results.mu.Unlock()

	m.progress.mu.Lock()
	m.progress.rows = map[int]model.ExamProgress{}
	m.progress.mu.Unlock()
	return nil
}

func (m *memArchives) List(_ context.Context) ([]model.ExamArchive, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExamArchive, 0, len(m.archives))
	for i := len(m.archives) - 1; i >= 0; i-- {
		out = append(out, m.archives[i])
	}
	return out, nil
}

func (m *memArchives) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.archives {
		if a.ID == id {
			m.archives = append(m.archives[:i], m.archives[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
